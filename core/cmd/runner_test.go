package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	services []func(context.Context) error
	closed   bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}
func (a *fakeApp) Services() []func(context.Context) error { return a.services }
func (a *fakeApp) Close() error { a.closed = true; return nil }

func TestRunStopsServicesWhenBotReturns(t *testing.T) {
	stopped := make(chan struct{})
	app := &fakeApp{services: []func(context.Context) error{
		func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		},
	}}
	started := false
	err := Run(context.Background(), Options{
		ConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return app, nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
		ShutdownLogger: func() error { return nil },
	})
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, app.closed)
	<-stopped
}

func TestRunSurfacesServiceFailure(t *testing.T) {
	boom := errors.New("listen tcp :3000: address already in use")
	app := &fakeApp{services: []func(context.Context) error{
		func(context.Context) error { return boom },
	}}
	err := Run(context.Background(), Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return app, nil },
		RunTelegram: func(ctx context.Context, _ coretelegram.RunOptions) error {
			<-ctx.Done()
			return nil
		},
		ShutdownLogger: func() error { return nil },
	})
	require.ErrorIs(t, err, boom)
}

func TestRunRequiresLoaders(t *testing.T) {
	assert.Error(t, Run(context.Background(), Options{}))
	assert.Error(t, Run(context.Background(), Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return &fakeApp{}, nil },
	}))
}
