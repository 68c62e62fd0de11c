package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// AllowedUpdates lists the update types the shop consumes.
var AllowedUpdates = []string{"message", "pre_checkout_query"}

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	DropPendingUpdates     bool
	Webhook                WebhookOptions
}

// BuildPoller returns a webhook or long poller. Long-polling drops pending updates
// through deleteWebhook at start instead.
func BuildPoller(opts PollerOptions) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
			AllowedUpdates: AllowedUpdates,
			DropUpdates:    opts.DropPendingUpdates,
		}
	}

	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{
		Timeout:        time.Duration(timeoutSec) * time.Second,
		AllowedUpdates: AllowedUpdates,
	}
}
