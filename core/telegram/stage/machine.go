package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
)

// maxHops bounds transitions chained by enter hooks calling Goto.
const maxHops = 8

// Machine owns the registered stages and drives them for every chat.
type Machine struct {
	store     state.Store
	messenger Messenger
	tracker   *state.Tracker
	initial   state.StageID

	stages map[state.StageID]Stage
	edges  map[state.StageID]map[state.StageID]struct{}
	locks  *chatLocks
}

// New builds a Machine whose chats start on initial.
func New(store state.Store, messenger Messenger, initial state.StageID) *Machine {
	return &Machine{
		store:     store,
		messenger: messenger,
		tracker:   state.NewTracker(messenger),
		initial:   initial,
		stages:    make(map[state.StageID]Stage),
		edges:     make(map[state.StageID]map[state.StageID]struct{}),
		locks:     newChatLocks(),
	}
}

// Register binds a stage implementation to id. Registration happens before the bot starts.
func (m *Machine) Register(id state.StageID, st Stage) {
	if id == "" || st == nil {
		logger.LogEvent(context.Background(), logger.Stage, slog.LevelWarn, "stage.register.skip",
			slog.String("stage", string(id)),
			slog.String("reason", "invalid"),
		)
		return
	}
	m.stages[id] = st
}

// Allow declares edges a hook may request through Scope.Goto. Once any edge is declared,
// undeclared hook transitions fail with ErrTransitionNotAllowed.
func (m *Machine) Allow(from state.StageID, to ...state.StageID) {
	set, ok := m.edges[from]
	if !ok {
		set = make(map[state.StageID]struct{}, len(to))
		m.edges[from] = set
	}
	for _, id := range to {
		set[id] = struct{}{}
	}
}

// Initial returns the default stage.
func (m *Machine) Initial() state.StageID {
	return m.initial
}

// Stages lists the registered stage ids in sorted order.
func (m *Machine) Stages() []state.StageID {
	ids := make([]state.StageID, 0, len(m.stages))
	for id := range m.stages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Enter activates id for the chat. Entering the active stage is a no-op.
// A failing enter hook leaves the chat on id.
func (m *Machine) Enter(ctx context.Context, chatID int64, id state.StageID) error {
	return m.withChat(ctx, chatID, func(ctx context.Context, sess *state.Session, _ bool) error {
		if sess.Stage == id {
			logger.LogEvent(ctx, logger.Stage, slog.LevelDebug, "stage.enter",
				slog.String("outcome", "noop"),
				slog.String("to", string(id)),
			)
			return nil
		}
		return m.transition(ctx, chatID, sess, id)
	})
}

// Dispatch hands msg to the active stage and applies the transition it requests.
func (m *Machine) Dispatch(ctx context.Context, chatID int64, msg Message) error {
	return m.withChat(ctx, chatID, func(ctx context.Context, sess *state.Session, _ bool) error {
		return m.dispatch(ctx, chatID, sess, msg)
	})
}

// Deliver dispatches msg, except for chats without a session: there the message is only
// tracked so the next entered stage cleans it up.
func (m *Machine) Deliver(ctx context.Context, chatID int64, msg Message) error {
	return m.withChat(ctx, chatID, func(ctx context.Context, sess *state.Session, existed bool) error {
		if !existed {
			m.tracker.Record(sess, msg.ID, state.OriginUser)
			return nil
		}
		return m.dispatch(ctx, chatID, sess, msg)
	})
}

// Record tracks a message without dispatching it.
func (m *Machine) Record(ctx context.Context, chatID int64, messageID int, origin state.Origin) error {
	return m.withChat(ctx, chatID, func(_ context.Context, sess *state.Session, _ bool) error {
		m.tracker.Record(sess, messageID, origin)
		return nil
	})
}

// Restart leaves the active stage, clears the session and enters the default stage again,
// even when the chat already is on it.
func (m *Machine) Restart(ctx context.Context, chatID int64) error {
	return m.withChat(ctx, chatID, func(ctx context.Context, sess *state.Session, existed bool) error {
		if existed {
			m.leave(ctx, chatID, sess)
			fresh, err := m.reset(ctx, chatID, sess)
			if err != nil {
				return err
			}
			*sess = *fresh
		}
		sess.Stage = ""
		return m.transition(ctx, chatID, sess, m.initial)
	})
}

// reset persists what leave left behind, clears it through the store and reloads.
func (m *Machine) reset(ctx context.Context, chatID int64, sess *state.Session) (*state.Session, error) {
	if err := m.store.Save(ctx, chatID, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := m.store.Reset(ctx, chatID); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	fresh, _, err := m.store.Load(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return fresh, nil
}

// Active returns the chat's current stage.
func (m *Machine) Active(ctx context.Context, chatID int64) (state.StageID, error) {
	unlock := m.locks.lock(chatID)
	defer unlock()
	sess, _, err := m.store.Load(ctx, chatID)
	if err != nil {
		return "", err
	}
	return sess.Stage, nil
}

func (m *Machine) withChat(ctx context.Context, chatID int64, fn func(context.Context, *state.Session, bool) error) error {
	unlock := m.locks.lock(chatID)
	defer unlock()

	sess, existed, err := m.store.Load(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	ctx = logger.WithStage(logger.WithChatID(ctx, chatID), string(sess.Stage))
	runErr := fn(ctx, sess, existed)
	if err := m.store.Save(ctx, chatID, sess); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w; save session: %v", runErr, err)
		}
		return fmt.Errorf("save session: %w", err)
	}
	return runErr
}

func (m *Machine) dispatch(ctx context.Context, chatID int64, sess *state.Session, msg Message) error {
	st, ok := m.stages[sess.Stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, sess.Stage)
	}
	scope := m.scope(chatID, sess)
	if err := safeCall(func() error { return st.Handle(ctx, scope, msg) }); err != nil {
		return fmt.Errorf("handle in %s: %w", sess.Stage, err)
	}
	next, ok := scope.Pending()
	if !ok {
		return nil
	}
	return m.follow(ctx, chatID, sess, next)
}

// follow applies a transition requested by a hook of the active stage.
func (m *Machine) follow(ctx context.Context, chatID int64, sess *state.Session, next state.StageID) error {
	if next == sess.Stage {
		return nil
	}
	if !m.allowed(sess.Stage, next) {
		logger.LogEvent(ctx, logger.Stage, slog.LevelWarn, "stage.transition.reject",
			slog.String("from", string(sess.Stage)),
			slog.String("to", string(next)),
		)
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sess.Stage, next)
	}
	return m.transition(ctx, chatID, sess, next)
}

func (m *Machine) allowed(from, to state.StageID) bool {
	if len(m.edges) == 0 {
		return true
	}
	_, ok := m.edges[from][to]
	return ok
}

// transition leaves the active stage and enters to, then follows transitions requested by
// enter hooks.
func (m *Machine) transition(ctx context.Context, chatID int64, sess *state.Session, to state.StageID) error {
	for hop := 0; ; hop++ {
		if hop >= maxHops {
			return fmt.Errorf("%w: stopped at %s", ErrTooManyHops, sess.Stage)
		}
		st, ok := m.stages[to]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, to)
		}
		from := sess.Stage
		if from != "" {
			m.leave(ctx, chatID, sess)
		}
		sess.Stage = to
		if err := m.store.Save(ctx, chatID, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		ctx := logger.WithStage(ctx, string(to))
		scope := m.scope(chatID, sess)
		start := time.Now()
		err := safeCall(func() error { return st.Enter(ctx, scope) })
		if err != nil {
			logger.LogEvent(ctx, logger.Stage, slog.LevelError, "stage.enter",
				slog.String("status", "fail"),
				slog.String("from", string(from)),
				slog.String("to", string(to)),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", logger.Err(err)),
			)
			return fmt.Errorf("enter %s: %w", to, err)
		}
		logger.LogEvent(ctx, logger.Stage, slog.LevelInfo, "stage.enter",
			slog.String("status", "ok"),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.Duration("duration", logger.Took(start)),
		)

		next, ok := scope.Pending()
		if !ok || next == to {
			return nil
		}
		if !m.allowed(to, next) {
			logger.LogEvent(ctx, logger.Stage, slog.LevelWarn, "stage.transition.reject",
				slog.String("from", string(to)),
				slog.String("to", string(next)),
			)
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, to, next)
		}
		to = next
	}
}

// leave runs the active stage's leave hook and flushes whatever it left queued.
// Failures are logged and never stop the transition.
func (m *Machine) leave(ctx context.Context, chatID int64, sess *state.Session) {
	st, ok := m.stages[sess.Stage]
	if ok {
		scope := m.scope(chatID, sess)
		if err := safeCall(func() error { return st.Leave(ctx, scope) }); err != nil {
			logger.LogEvent(ctx, logger.Stage, slog.LevelWarn, "stage.leave",
				slog.String("status", "fail"),
				slog.String("from", string(sess.Stage)),
				slog.String("err", logger.Err(err)),
			)
		}
	}
	if len(sess.Cleanup) > 0 {
		m.tracker.Flush(ctx, chatID, sess)
	}
}

func (m *Machine) scope(chatID int64, sess *state.Session) *Scope {
	return &Scope{ChatID: chatID, Session: sess, machine: m}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return fn()
}
