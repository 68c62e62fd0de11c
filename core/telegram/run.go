package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options

	Middlewares []Middleware
	// Routes builds the handlers once the bot exists, since most of them need the bot
	// identity or its client.
	Routes func(ctx context.Context, rt Runtime) ([]Route, error)

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		DropPendingUpdates:     cfg.Telegram.DropPendingUpdates,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second),
		OnError: logBotError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	dispatcher := tgsender.NewDispatcher(opts.DispatcherOptions)
	tghelpers.SetDispatcher(dispatcher)
	defer tghelpers.SetDispatcher(nil)

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	case *tele.LongPoller:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Bool("drop_pending", cfg.Telegram.DropPendingUpdates),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			if err := deleteWebhook(ctx, cfg.Telegram.Token, cfg.Telegram.DropPendingUpdates); err != nil {
				logger.TG.LogAttrs(ctx, slog.LevelWarn, "failed to delete webhook",
					slog.String("event", "delete_webhook"),
					slog.String("status", "fail"),
					slog.String("err", logger.Err(err)),
				)
			} else {
				logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook deleted",
					slog.String("event", "delete_webhook"),
					slog.String("status", "ok"),
				)
			}
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	if opts.Routes != nil {
		routes, err := opts.Routes(ctx, rt)
		if err != nil {
			dispatcher.Close()
			return fmt.Errorf("telegram: build routes: %w", err)
		}
		for _, route := range routes {
			if route.Endpoint == nil || route.Handler == nil {
				continue
			}
			bot.Handle(route.Endpoint, route.Handler)
		}
		logger.TWire.LogAttrs(ctx, slog.LevelInfo, "tg.wire",
			slog.String("event", "complete"),
			slog.Int("routes", len(routes)),
			slog.Int("commands", len(reg.Commands())),
		)
	}

	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func logBotError(err error, c tele.Context) {
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("status", "fail"),
		slog.String("err", logger.Err(err)),
	)
}

func deleteWebhook(ctx context.Context, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := fmt.Sprintf("drop_pending_updates=%t", dropPending)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		// The error embeds the URL, which carries the token.
		return errors.New("deleteWebhook request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
