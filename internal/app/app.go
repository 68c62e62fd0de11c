// Package app wires configuration, storage, sessions and the Telegram runtime into a
// runnable shop bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/shopbot/core/bootstrap"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/health"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/shop/demo"
	"github.com/m3rciful/shopbot/internal/shop/dispatch"
	"github.com/m3rciful/shopbot/internal/shop/notify"
	"github.com/m3rciful/shopbot/internal/shop/payment"
	"github.com/m3rciful/shopbot/internal/shop/receipt"
	"github.com/m3rciful/shopbot/internal/shop/scenes"
	"github.com/m3rciful/shopbot/internal/shop/storage/memory"
	"github.com/m3rciful/shopbot/internal/shop/storage/postgres"
	"github.com/m3rciful/shopbot/internal/shop/voucher"
)

// App holds the long-lived infrastructure of a running bot.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	redis    *redis.Client
	storage  shop.Storage
	sessions state.Store
}

// Bootstrap initializes logging, storage and the session store described by cfg.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	opts := bootstrap.Options{Config: &cfg.Config}
	if cfg.Storage.Backend == BackendPostgres {
		opts.Database = &cfg.Database
		opts.Migrations = postgres.Migrations()
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}
	if infra.DB != nil {
		a.storage = postgres.New(infra.DB)
	} else {
		a.storage = memory.New()
	}

	switch cfg.Session.Backend {
	case BackendRedis:
		client, err := openRedis(ctx, cfg.Session)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		a.redis = client
		a.sessions = state.NewRedisStore(client, scenes.Welcome, cfg.Session.TTL)
	default:
		a.sessions = state.NewMemoryStore(scenes.Welcome)
	}

	logger.Info(ctx, "app", "bootstrap",
		slog.String("mode", cfg.Shop.Mode),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("sessions", cfg.Session.Backend),
		slog.Bool("payments", cfg.Shop.ProviderToken != ""),
	)
	return a, nil
}

func openRedis(ctx context.Context, cfg SessionConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: redis ping: %w", err)
	}
	return client, nil
}

// CoreConfig implements the runner's config carrier.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg.CoreConfig() }

// TelegramRunOptions builds the run options. Components that need the bot are
// constructed once the runtime exists.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Registry: reg,
		DispatcherOptions: sender.Options{
			MaxRetries:   2,
			RetryBackoff: time.Second,
		},
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, dispatch.Failure, nil),
		Routes: func(ctx context.Context, rt tg.Runtime) ([]tg.Route, error) {
			d, err := a.wire(rt)
			if err != nil {
				return nil, err
			}
			d.RegisterCommands(reg)
			return d.Routes(reg), nil
		},
	}, nil
}

func (a *App) wire(rt tg.Runtime) (*dispatch.Dispatcher, error) {
	if rt.Bot == nil || rt.Bot.Me == nil {
		return nil, errors.New("app: bot identity unavailable")
	}
	me := rt.Bot.Me
	messenger := sender.NewBotMessenger(rt.Bot, 3, 500*time.Millisecond)
	machine := stage.New(a.sessions, messenger, scenes.Welcome)
	payments := payment.New(rt.Bot, a.cfg.Shop.ProviderToken)

	err := scenes.Register(machine, scenes.Deps{
		ShopID:   me.ID,
		ShopName: me.FirstName,
		Currency: a.cfg.Shop.Currency,
		Storage:  a.storage,
		Vouchers: voucher.New(a.cfg.Shop.VoucherPrefix),
		Payments: payments,
		Receipts: receipt.New(),
		Notifier: notify.New(rt.Dispatcher, rt.Bot),
	})
	if err != nil {
		return nil, err
	}

	opts := dispatch.Options{
		ShopID:    me.ID,
		ShopName:  me.FirstName,
		Token:     a.cfg.Telegram.Token,
		Demo:      a.cfg.Shop.Mode == ModeDemo,
		Storage:   a.storage,
		Payments:  payments,
		Machine:   machine,
		Messenger: messenger,
	}
	if opts.Demo {
		opts.Seeder = demo.New(a.storage, demo.Catalog)
	}
	return dispatch.New(opts)
}

// Services returns the background services started next to the bot.
func (a *App) Services() []func(ctx context.Context) error {
	if a.cfg.Health.Disabled {
		return nil
	}
	return []func(ctx context.Context) error{health.NewServer(a.cfg.Health.Port).Run}
}

// Close releases redis and database connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
