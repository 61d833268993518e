// Package ops loads and resolves runtime configuration for the demo
// binary and operational tooling.
package ops

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kanekoshoyu/guilder/adapter"
	"github.com/kanekoshoyu/guilder/exchange"
	ierr "github.com/kanekoshoyu/guilder/internal/errors"
	"github.com/kanekoshoyu/guilder/monitor"
)

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Venue     VenueConfig     `yaml:"venue"`
	Probe     ProbeConfig     `yaml:"probe"`
	Journal   JournalConfig   `yaml:"journal"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// VenueConfig selects and parameterizes the venue connector.
type VenueConfig struct {
	Name       string   `yaml:"name"`
	Endpoint   string   `yaml:"endpoint"`
	WsEndpoint string   `yaml:"wsEndpoint"`
	Key        string   `yaml:"key"`
	Secret     string   `yaml:"secret"`
	DevMode    bool     `yaml:"devMode"`
	Symbols    []string `yaml:"symbols"`
}

// ProbeConfig tunes the connectivity monitor.
type ProbeConfig struct {
	TimeoutMillis         int64 `yaml:"timeoutMillis"`
	ConnectedWindowMillis int64 `yaml:"connectedWindowMillis"`
}

// JournalConfig points the order journal at its database.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// ProfilingConfig captures optional continuous profiling settings.
type ProfilingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ServerAddress string `yaml:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Venue     string
	Options   exchange.Options
	Journal   JournalConfig
	Profiling ProfilingConfig
}

// Environment variables that override file-borne credentials, so secrets
// stay out of checked-in config.
const (
	EnvKey    = "GUILDER_KEY"
	EnvSecret = "GUILDER_SECRET"
)

// Load reads a YAML config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, ierr.Wrapf(err, "read config, path: %s", path)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, ierr.Wrap(err, "parse config")
	}

	return Resolve(cfg)
}

// Resolve validates the raw config and applies defaults and env overrides.
func Resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Venue.Name == "" {
		return Loaded{}, ierr.New("venue name is empty")
	}
	if cfg.Probe.TimeoutMillis < 0 || cfg.Probe.ConnectedWindowMillis < 0 {
		return Loaded{}, ierr.New("probe durations must be >= 0")
	}
	if cfg.Journal.Enabled && cfg.Journal.DSN == "" {
		return Loaded{}, ierr.New("journal enabled without dsn")
	}
	if cfg.Profiling.Enabled && cfg.Profiling.ServerAddress == "" {
		return Loaded{}, ierr.New("profiling enabled without server address")
	}

	symbols := make([]adapter.Symbol, 0, len(cfg.Venue.Symbols))
	for _, raw := range cfg.Venue.Symbols {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			return Loaded{}, ierr.New(fmt.Sprintf("blank symbol in config, got: %q", raw))
		}
		symbols = append(symbols, adapter.Symbol(name))
	}

	key := cfg.Venue.Key
	if v := os.Getenv(EnvKey); v != "" {
		key = v
	}
	secret := cfg.Venue.Secret
	if v := os.Getenv(EnvSecret); v != "" {
		secret = v
	}

	return Loaded{
		Venue: cfg.Venue.Name,
		Options: exchange.Options{
			Endpoint:   cfg.Venue.Endpoint,
			WsEndpoint: cfg.Venue.WsEndpoint,
			Key:        key,
			Secret:     secret,
			DevMode:    cfg.Venue.DevMode,
			Symbols:    symbols,
			Probe: monitor.Config{
				ProbeTimeout:    time.Duration(cfg.Probe.TimeoutMillis) * time.Millisecond,
				ConnectedWindow: time.Duration(cfg.Probe.ConnectedWindowMillis) * time.Millisecond,
			},
		},
		Journal:   cfg.Journal,
		Profiling: cfg.Profiling,
	}, nil
}
