package stage

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/state"
)

// Scope is the per-call view a hook gets of its chat.
type Scope struct {
	ChatID  int64
	Session *state.Session

	machine *Machine
	next    state.StageID
}

// Stage returns the active stage id.
func (s *Scope) Stage() state.StageID {
	return s.Session.Stage
}

// Send delivers out and tracks the resulting message for cleanup.
func (s *Scope) Send(ctx context.Context, out Outgoing) (int, error) {
	id, err := s.SendUntracked(ctx, out)
	if err != nil {
		return 0, err
	}
	s.Track(id, state.OriginBot)
	return id, nil
}

// SendUntracked delivers out without scheduling it for deletion.
func (s *Scope) SendUntracked(ctx context.Context, out Outgoing) (int, error) {
	return s.machine.messenger.Send(ctx, s.ChatID, out)
}

// Track schedules a message for deletion when the stage is left.
func (s *Scope) Track(messageID int, origin state.Origin) {
	s.machine.tracker.Record(s.Session, messageID, origin)
}

// Flush deletes every tracked message now.
func (s *Scope) Flush(ctx context.Context) state.FlushReport {
	return s.machine.tracker.Flush(ctx, s.ChatID, s.Session)
}

// Goto requests a transition that the machine applies once the hook returns.
// The last request wins.
func (s *Scope) Goto(id state.StageID) {
	s.next = id
}

// Pending returns the stage requested through Goto, if any.
func (s *Scope) Pending() (state.StageID, bool) {
	return s.next, s.next != ""
}

// Set stores a scratch value.
func (s *Scope) Set(key string, value any) error {
	return s.Session.Set(key, value)
}

// Get decodes a scratch value into out.
func (s *Scope) Get(key string, out any) (bool, error) {
	return s.Session.Get(key, out)
}
