// Package stage runs per-chat conversation stages: it tracks the active stage of every chat,
// calls the leave and enter hooks of a transition in order and serializes work per chat.
package stage

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/core/telegram/state"
)

var (
	// ErrUnknownStage is returned for stage ids that were never registered.
	ErrUnknownStage = errors.New("stage: unknown stage")
	// ErrTransitionNotAllowed is returned when a hook requests an edge the graph does not declare.
	ErrTransitionNotAllowed = errors.New("stage: transition not allowed")
	// ErrTooManyHops is returned when enter hooks keep chaining transitions.
	ErrTooManyHops = errors.New("stage: too many chained transitions")
)

// Stage is one node of the conversation graph.
type Stage interface {
	Enter(ctx context.Context, s *Scope) error
	Handle(ctx context.Context, s *Scope, msg Message) error
	Leave(ctx context.Context, s *Scope) error
}

// Hooks adapts plain functions to Stage. Nil hooks do nothing.
type Hooks struct {
	OnEnter   func(ctx context.Context, s *Scope) error
	OnMessage func(ctx context.Context, s *Scope, msg Message) error
	OnLeave   func(ctx context.Context, s *Scope) error
}

func (h Hooks) Enter(ctx context.Context, s *Scope) error {
	if h.OnEnter == nil {
		return nil
	}
	return h.OnEnter(ctx, s)
}

func (h Hooks) Handle(ctx context.Context, s *Scope, msg Message) error {
	if h.OnMessage == nil {
		return nil
	}
	return h.OnMessage(ctx, s, msg)
}

func (h Hooks) Leave(ctx context.Context, s *Scope) error {
	if h.OnLeave == nil {
		return nil
	}
	return h.OnLeave(ctx, s)
}

// Sender identifies the author of an inbound message.
type Sender struct {
	ID       int64
	Name     string
	Username string
}

// Payment describes a successful payment attached to a message.
type Payment struct {
	Currency string
	Total    int
	Payload  string
	ChargeID string
}

// Message is an inbound chat message delivered to the active stage.
type Message struct {
	ID      int
	Text    string
	From    Sender
	Payment *Payment
}

// Document is a file attached to an outgoing message.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Outgoing is a message the bot sends. Keyboard rows render as a reply keyboard.
type Outgoing struct {
	Text           string
	HTML           bool
	Keyboard       [][]string
	RemoveKeyboard bool
	Document       *Document
}

// Messenger sends and deletes chat messages.
type Messenger interface {
	Send(ctx context.Context, chatID int64, out Outgoing) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

var _ state.Deleter = Messenger(nil)
