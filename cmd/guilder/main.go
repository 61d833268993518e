package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/kanekoshoyu/guilder/exchange"
	"github.com/kanekoshoyu/guilder/journal"
	"github.com/kanekoshoyu/guilder/ops"
	"github.com/kanekoshoyu/guilder/pkg/conn"

	_ "github.com/kanekoshoyu/guilder/venue/btcc"
	_ "github.com/kanekoshoyu/guilder/venue/paper"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config")
	envPath := flag.String("env", "", "Optional .env file with credentials")
	demoOrders := flag.Int("demo-orders", 0, "Place this many demo orders after startup")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			logs.Fatalf("load env file, err: %+v", err)
		}
	} else {
		_ = godotenv.Load()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Fatalf("load config, err: %+v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "guilder",
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags: map[string]string{
				"venue": loaded.Venue,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Fatalf("start profiler, err: %+v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	client, err := exchange.Open(ctx, loaded.Venue, loaded.Options)
	if err != nil {
		logs.Fatalf("open venue %s, err: %+v", loaded.Venue, err)
	}
	defer client.Close()

	if !client.Ping(ctx) {
		logs.Fatalf("venue %s unreachable", loaded.Venue)
	}
	if skew, ok := client.ClockSkew(); ok {
		logs.Infof("venue %s reachable, clock skew: %s", loaded.Venue, skew)
	}

	if err := client.SyncCatalog(ctx); err != nil {
		logs.Fatalf("sync catalog, err: %+v", err)
	}
	logs.Infof("catalog loaded, symbols: %d", len(client.Symbols()))

	for _, symbol := range loaded.Options.Symbols {
		unsubscribe, err := client.Watch(ctx, symbol)
		if err != nil {
			logs.Fatalf("watch %s, err: %+v", symbol, err)
		}
		defer unsubscribe()
	}

	if loaded.Journal.Enabled {
		pg, err := conn.OpenPostgres(ctx, conn.PostgresOption{DSN: loaded.Journal.DSN})
		if err != nil {
			logs.Fatalf("open journal database, err: %+v", err)
		}
		defer pg.Close()

		j, err := journal.New(pg.DB())
		if err != nil {
			logs.Fatalf("open journal, err: %+v", err)
		}

		recovered, err := j.Load(ctx)
		if err != nil {
			logs.Fatalf("load journal, err: %+v", err)
		}
		logs.Infof("journal holds %d orders", len(recovered))

		updates, cancel := client.SubscribeOrders()
		defer cancel()
		go j.Run(ctx, updates)
	}

	if *demoOrders > 0 {
		go runDemo(ctx, client, loaded, *demoOrders)
	}

	go watchPrices(ctx, client, loaded)

	<-ctx.Done()
	logs.Info("shutting down")
}

func watchPrices(ctx context.Context, client *exchange.Adapter, loaded ops.Loaded) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range loaded.Options.Symbols {
				price, err := client.Price(symbol)
				if err != nil {
					logs.Warnf("no price for %s, err: %+v", symbol, err)
					continue
				}
				logs.Infof("%s mid: %s", symbol, price)
			}
		}
	}
}

func runDemo(ctx context.Context, client *exchange.Adapter, loaded ops.Loaded, count int) {
	if len(loaded.Options.Symbols) == 0 {
		logs.Warn("demo requested without symbols")
		return
	}

	symbol := loaded.Options.Symbols[0]
	updates, cancel := client.SubscribeOrders()
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case order, ok := <-updates:
				if !ok {
					return
				}
				logs.Infof("order %d -> %s, filled: %s", order.Cloid, order.State, order.Filled)
			}
		}
	}()

	for i := 0; i < count; i++ {
		price, err := client.Price(symbol)
		if err != nil {
			logs.Warnf("skip demo order, no price for %s, err: %+v", symbol, err)
			time.Sleep(time.Second)
			continue
		}

		cloid, err := client.PlaceOrder(ctx, symbol, price, decimal.NewFromFloat(0.001))
		if err != nil {
			logs.Errorf("demo order failed, err: %+v", err)
			continue
		}
		logs.Infof("placed demo order, cloid: %d", cloid)
		time.Sleep(time.Second)
	}
}
