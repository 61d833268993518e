// Package conn holds database connectors shared by the journal and
// operational tooling.
package conn

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ierr "github.com/kanekoshoyu/guilder/internal/errors"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// PostgresOption configures the journal database connection. DSN wins when
// set; otherwise the discrete fields are assembled into one.
type PostgresOption struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Postgres wraps a gorm connection pool.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres dials the database and verifies the pool is usable.
func OpenPostgres(ctx context.Context, opt PostgresOption) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(opt.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, ierr.Wrap(err, "open postgres")
	}

	p := &Postgres{db: db}
	if err := p.Ping(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// DB exposes the underlying gorm handle.
func (p *Postgres) DB() *gorm.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// Ping verifies the pool within the context's bound.
func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return ierr.Wrap(err, "unwrap sql pool")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ierr.Wrap(err, "ping postgres")
	}

	return nil
}

// Close drains the connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}

	sqlDB, err := p.db.DB()
	if err != nil {
		return ierr.Wrap(err, "unwrap sql pool")
	}

	return sqlDB.Close()
}

func (opt PostgresOption) dsn() string {
	if opt.DSN != "" {
		return opt.DSN
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	if opt.User != "" {
		u.User = url.UserPassword(opt.User, opt.Password)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	return u.String()
}
