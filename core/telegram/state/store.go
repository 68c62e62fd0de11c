package state

import (
	"context"
	"sync"
)

// Store persists sessions keyed by chat id.
type Store interface {
	// Load returns the chat session and whether it already existed. A missing session is
	// returned as a fresh one on the store's default stage.
	Load(ctx context.Context, chatID int64) (*Session, bool, error)
	Save(ctx context.Context, chatID int64, sess *Session) error
	// Reset clears the cleanup queue and scratch data of an existing session.
	Reset(ctx context.Context, chatID int64) error
}

type memoryStore struct {
	mu           sync.RWMutex
	sessions     map[int64]*Session
	defaultStage StageID
}

// NewMemoryStore constructs an in-memory Store for tests and single-process deployments.
func NewMemoryStore(defaultStage StageID) Store {
	return &memoryStore{
		sessions:     make(map[int64]*Session),
		defaultStage: defaultStage,
	}
}

func (m *memoryStore) Load(_ context.Context, chatID int64) (*Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess.Clone(), true, nil
	}
	return NewSession(m.defaultStage), false, nil
}

func (m *memoryStore) Save(_ context.Context, chatID int64, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = sess.Clone()
	return nil
}

func (m *memoryStore) Reset(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[chatID]; ok {
		sess.Reset()
	}
	return nil
}
