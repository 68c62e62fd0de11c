package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
	// Services are started next to the bot and must return once ctx is done.
	Services() []func(ctx context.Context) error
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals overrides the stop signals; tests pass a context they cancel instead.
	Signals []os.Signal
}

// Run loads configuration, bootstraps the app and runs the bot and its services until
// SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	log.Printf("loading config: %s", opts.ConfigPath)
	cfg, err := opts.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	signals := opts.Signals
	if signals == nil {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := signal.NotifyContext(ctx, signals...)
	defer cancel()

	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error(context.Background(), "app", "close", slog.String("err", logger.Err(err)))
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	startedAt := time.Now()
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	var (
		wg      sync.WaitGroup
		svcMu   sync.Mutex
		svcErrs []error
	)
	for _, svc := range application.Services() {
		if svc == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc(ctx); err != nil && !errors.Is(err, context.Canceled) {
				svcMu.Lock()
				svcErrs = append(svcErrs, err)
				svcMu.Unlock()
				logger.Error(ctx, "app", "service.fail", slog.String("err", logger.Err(err)))
				cancel()
			}
		}()
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	runErr := run(ctx, runOpts)
	cancel()
	wg.Wait()

	return errors.Join(append([]error{runErr}, svcErrs...)...)
}
