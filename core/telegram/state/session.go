package state

import (
	"encoding/json"
	"fmt"
)

// StageID identifies a conversation stage.
type StageID string

// Origin tells who sent a tracked message.
type Origin string

const (
	// OriginUser marks a message the user sent.
	OriginUser Origin = "user"
	// OriginBot marks a message the bot sent.
	OriginBot Origin = "bot"
)

// TrackedMessage is a chat message scheduled for deletion when the active stage is left.
type TrackedMessage struct {
	ID     int    `json:"id"`
	Origin Origin `json:"origin"`
}

// Session stores conversation state and scratch data for a chat.
// Scratch values are kept JSON-encoded so memory and Redis backends behave the same.
type Session struct {
	Stage   StageID                    `json:"stage"`
	Cleanup []TrackedMessage           `json:"cleanup,omitempty"`
	Scratch map[string]json.RawMessage `json:"scratch,omitempty"`
}

// NewSession returns an empty session parked on the given stage.
func NewSession(stage StageID) *Session {
	return &Session{Stage: stage, Scratch: make(map[string]json.RawMessage)}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		Stage:   s.Stage,
		Cleanup: append([]TrackedMessage(nil), s.Cleanup...),
		Scratch: make(map[string]json.RawMessage, len(s.Scratch)),
	}
	for k, v := range s.Scratch {
		out.Scratch[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Set stores value under key.
func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode scratch %q: %w", key, err)
	}
	if s.Scratch == nil {
		s.Scratch = make(map[string]json.RawMessage)
	}
	s.Scratch[key] = raw
	return nil
}

// Get decodes the value stored under key into out and reports whether the key was present.
func (s *Session) Get(key string, out any) (bool, error) {
	raw, ok := s.Scratch[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("state: decode scratch %q: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present in scratch.
func (s *Session) Has(key string) bool {
	_, ok := s.Scratch[key]
	return ok
}

// Delete removes keys from scratch.
func (s *Session) Delete(keys ...string) {
	for _, k := range keys {
		delete(s.Scratch, k)
	}
}

// ClearScratch drops all scratch data.
func (s *Session) ClearScratch() {
	s.Scratch = make(map[string]json.RawMessage)
}

// Reset clears the cleanup queue and scratch data; the stage is kept.
func (s *Session) Reset() {
	s.Cleanup = nil
	s.ClearScratch()
}
