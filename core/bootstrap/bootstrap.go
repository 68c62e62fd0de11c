package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config
	// Database is nil when the app runs without Postgres.
	Database   *coredatabase.Config
	Migrations coredatabase.Migrations
	// ConnectWait bounds how long Connect waits for Postgres to come up.
	ConnectWait time.Duration

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config, time.Duration) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config, coredatabase.Migrations) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database was configured.
	DB *sqlx.DB
}

// Close releases the infrastructure.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when a database is configured, connects and migrates it.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.Database == nil {
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	wait := opts.ConnectWait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	db, err := connect(ctx, *opts.Database, wait)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(*opts.Database, opts.Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return &Result{DB: db}, nil
}
