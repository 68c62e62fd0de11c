package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/shopbot/core/logger"
)

// Migrations names the embedded migration files.
type Migrations struct {
	FS  fs.FS
	Dir string
}

func (m Migrations) open(cfg Config) (*migrate.Migrate, error) {
	src, err := iofs.New(m.FS, m.Dir)
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	mg, err := migrate.NewWithSourceInstance("iofs", src, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return mg, nil
}

// RunMigrations applies all pending up migrations.
func RunMigrations(cfg Config, migrations Migrations) error {
	files := listMigrationFiles(migrations, ".up.sql")
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", migrations.Dir),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrations.open(cfg)
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", logger.Err(err)))
		return err
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("status", "fail"),
			slog.String("err", logger.Err(upErr)),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

// RollbackMigrations reverts the given number of migrations.
func RollbackMigrations(cfg Config, migrations Migrations, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be > 0")
	}
	m, err := migrations.open(cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration rollback failed: %w", err)
	}
	ver, dirty, _ := m.Version()
	logger.MIG.Info("migrations rolled back",
		slog.String("event", "rollback"),
		slog.String("status", "ok"),
		slog.Int("steps", steps),
		slog.Uint64("to_ver", uint64(ver)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

func listMigrationFiles(migrations Migrations, suffix string) []string {
	if migrations.FS == nil {
		return nil
	}
	entries, err := fs.ReadDir(migrations.FS, migrations.Dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
