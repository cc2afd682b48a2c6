package service

import "sync"

// UserLocks serializes work per user. Entries are dropped once no goroutine holds or waits on them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu      sync.Mutex
	holders int
}

// NewUserLocks creates an empty lock table
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until the user's lock is held and returns the function that releases it
func (l *UserLocks) Lock(userID string) (unlock func()) {
	l.mu.Lock()
	ul, exists := l.locks[userID]
	if !exists {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.holders++
	l.mu.Unlock()

	ul.mu.Lock()
	return l.releaser(userID, ul)
}

// TryLock takes the user's lock only if nobody holds or waits for it
func (l *UserLocks) TryLock(userID string) (unlock func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.locks[userID]; exists {
		return nil, false
	}
	ul := &userLock{holders: 1}
	ul.mu.Lock()
	l.locks[userID] = ul
	return l.releaser(userID, ul), true
}

func (l *UserLocks) releaser(userID string, ul *userLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ul.mu.Unlock()
			l.mu.Lock()
			ul.holders--
			if ul.holders == 0 {
				delete(l.locks, userID)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of users currently tracked
func (l *UserLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
