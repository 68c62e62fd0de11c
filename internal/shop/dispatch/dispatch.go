// Package dispatch turns bot updates into shop actions: /start and /setup commands,
// conversation messages and pre-checkout answers.
package dispatch

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/shop"
)

// ErrShopNotSetup is returned when the bot has no shop record and demo mode is off.
var ErrShopNotSetup = errors.New("dispatch: shop not set up")

// Event is the transport-neutral view of an inbound update.
type Event struct {
	ChatID    int64
	MessageID int
	Text      string
	From      stage.Sender
	Payment   *stage.Payment
}

// Options wires the dispatcher.
type Options struct {
	// ShopID is the bot's user id; ShopName its first name.
	ShopID   int64
	ShopName string
	// Token is the shared secret /setup must present.
	Token string
	Demo  bool

	Storage   shop.Storage
	Seeder    shop.Seeder
	Payments  shop.Payments
	Machine   *stage.Machine
	Messenger stage.Messenger
}

// Dispatcher routes events to storage and the stage machine.
type Dispatcher struct {
	opts Options
}

// New validates opts.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Storage == nil:
		return nil, errors.New("dispatch: storage is required")
	case opts.Machine == nil:
		return nil, errors.New("dispatch: machine is required")
	case opts.Messenger == nil:
		return nil, errors.New("dispatch: messenger is required")
	case opts.Payments == nil:
		return nil, errors.New("dispatch: payments are required")
	case opts.Demo && opts.Seeder == nil:
		return nil, errors.New("dispatch: demo mode needs a seeder")
	}
	return &Dispatcher{opts: opts}, nil
}

// Start (re)opens the shop for the chat: it makes sure shop, user and chat records
// exist, removes the command message and restarts the conversation on the welcome stage.
func (d *Dispatcher) Start(ctx context.Context, ev Event) error {
	if err := d.ensureShop(ctx); err != nil {
		return err
	}
	if err := d.ensureMember(ctx, ev); err != nil {
		return err
	}
	if ev.MessageID != 0 {
		if err := d.opts.Messenger.Delete(ctx, ev.ChatID, ev.MessageID); err != nil {
			logger.LogEvent(ctx, logger.Shop, slog.LevelDebug, "dispatch.start.delete",
				slog.String("status", "fail"),
				slog.String("err", logger.Err(err)),
			)
		}
	}
	if err := d.opts.Machine.Restart(ctx, ev.ChatID); err != nil {
		return fmt.Errorf("restart conversation: %w", err)
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "dispatch.start",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.From.ID),
	)
	return nil
}

// SetupStatus tells how a /setup attempt ended.
type SetupStatus int

// Setup outcomes.
const (
	SetupOK SetupStatus = iota
	SetupMissingToken
	SetupInvalidToken
	SetupAlreadyDone
)

func (s SetupStatus) String() string {
	switch s {
	case SetupOK:
		return "ok"
	case SetupMissingToken:
		return "missing_token"
	case SetupInvalidToken:
		return "invalid_token"
	case SetupAlreadyDone:
		return "already_done"
	}
	return "unknown"
}

// SetupResult is the outcome of /setup.
type SetupResult struct {
	Status    SetupStatus
	OwnerID   int64
	OwnerName string
	ShopName  string
}

// Setup registers the sender as the shop owner when the command carries the bot token.
// Validation failures are reported through the result and change nothing.
func (d *Dispatcher) Setup(ctx context.Context, ev Event) (SetupResult, error) {
	res := SetupResult{OwnerID: ev.From.ID, OwnerName: ownerName(ev.From), ShopName: d.opts.ShopName}
	_, err := d.opts.Storage.GetShop(ctx, d.opts.ShopID)
	switch {
	case err == nil:
		res.Status = SetupAlreadyDone
		return res, nil
	case !errors.Is(err, shop.ErrNotFound):
		return res, fmt.Errorf("load shop: %w", err)
	}

	token := setupToken(ev.Text)
	switch {
	case token == "":
		res.Status = SetupMissingToken
		return res, nil
	case subtle.ConstantTimeCompare([]byte(token), []byte(d.opts.Token)) != 1:
		res.Status = SetupInvalidToken
		logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "dispatch.setup",
			slog.String("status", "fail"),
			slog.String("reason", res.Status.String()),
			slog.Int64("user_id", ev.From.ID),
		)
		return res, nil
	}

	if err := d.opts.Storage.CreateUser(ctx, shop.User{ID: ev.From.ID, Name: ev.From.Name, Username: ev.From.Username}); err != nil {
		return res, fmt.Errorf("create owner: %w", err)
	}
	if err := d.opts.Storage.SetOwner(ctx, ev.From.ID); err != nil {
		return res, fmt.Errorf("mark owner: %w", err)
	}
	if err := d.opts.Storage.CreateShop(ctx, shop.Shop{
		ID: d.opts.ShopID, Name: d.opts.ShopName, OwnerID: ev.From.ID, Token: token,
	}); err != nil {
		return res, fmt.Errorf("create shop: %w", err)
	}
	if err := d.opts.Storage.CreateChat(ctx, shop.Chat{ShopID: d.opts.ShopID, UserID: ev.From.ID, ChatID: ev.ChatID}); err != nil {
		return res, fmt.Errorf("create chat: %w", err)
	}
	res.Status = SetupOK
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "dispatch.setup",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.From.ID),
		slog.Int64("shop_id", d.opts.ShopID),
	)
	return res, nil
}

// Message hands a chat message to the conversation. Chats without a record only get
// the message tracked, so it is cleaned up once the chat starts.
func (d *Dispatcher) Message(ctx context.Context, ev Event) error {
	if _, err := d.opts.Storage.GetShop(ctx, d.opts.ShopID); err != nil {
		if !errors.Is(err, shop.ErrNotFound) {
			return fmt.Errorf("load shop: %w", err)
		}
		if !d.opts.Demo {
			return ErrShopNotSetup
		}
	}
	_, err := d.opts.Storage.GetChat(ctx, d.opts.ShopID, ev.ChatID)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		return d.opts.Machine.Record(ctx, ev.ChatID, ev.MessageID, state.OriginUser)
	case err != nil:
		return fmt.Errorf("load chat: %w", err)
	}
	return d.opts.Machine.Deliver(ctx, ev.ChatID, stage.Message{
		ID:      ev.MessageID,
		Text:    ev.Text,
		From:    ev.From,
		Payment: ev.Payment,
	})
}

// PreCheckout answers a pre-checkout query. It never touches the conversation.
func (d *Dispatcher) PreCheckout(ctx context.Context, q shop.PreCheckout) shop.Verdict {
	return d.opts.Payments.AcknowledgePreCheckout(ctx, q)
}

func (d *Dispatcher) ensureShop(ctx context.Context) error {
	_, err := d.opts.Storage.GetShop(ctx, d.opts.ShopID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, shop.ErrNotFound):
		return fmt.Errorf("load shop: %w", err)
	case !d.opts.Demo:
		return ErrShopNotSetup
	}
	if err := d.opts.Seeder.Seed(ctx, shop.Shop{ID: d.opts.ShopID, Name: d.opts.ShopName}); err != nil {
		return fmt.Errorf("seed demo shop: %w", err)
	}
	return nil
}

func (d *Dispatcher) ensureMember(ctx context.Context, ev Event) error {
	if err := d.opts.Storage.CreateUser(ctx, shop.User{ID: ev.From.ID, Name: ev.From.Name, Username: ev.From.Username}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if err := d.opts.Storage.CreateChat(ctx, shop.Chat{ShopID: d.opts.ShopID, UserID: ev.From.ID, ChatID: ev.ChatID}); err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

// setupToken returns the argument of "/setup <token>".
func setupToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func ownerName(s stage.Sender) string {
	if s.Username != "" {
		return "@" + s.Username
	}
	return s.Name
}
