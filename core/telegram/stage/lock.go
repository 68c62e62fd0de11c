package stage

import "sync"

// chatLocks hands out one mutex per chat id and forgets it when nobody holds or waits for it.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*chatLock)}
}

func (c *chatLocks) lock(chatID int64) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}

func (c *chatLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
