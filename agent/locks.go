package agent

import "sync"

// userLocks serializes turns per user while letting different users proceed
// concurrently. The map holds one mutex per user ever seen and is never
// pruned; entries are a few words each, so eviction waits until a deployment
// actually needs it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (u *userLocks) lock(userID string) *sync.Mutex {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l
}
