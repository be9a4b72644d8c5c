// Package distlock guards a scoring run so only one runs per key at a time.
package distlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when extending a lock this holder no longer owns.
var ErrNotHeld = errors.New("distlock: lock not held")

// Lock is a non-blocking mutual exclusion lease.
// A Lock value belongs to one holder; concurrent holders need their own.
type Lock interface {
	// Acquire tries to take the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if we still own it.
	Release(ctx context.Context) error
}

// New returns a Redis lease when client is set, otherwise a lock local
// to this process.
func New(client redis.Cmdable, key string, ttl time.Duration) Lock {
	if client != nil {
		return NewRedisLock(client, key, ttl)
	}
	return NewLocalLock(key)
}

var (
	localMu   sync.Mutex
	localHeld = make(map[string]bool)
)

// LocalLock serializes holders of the same key inside one process.
type LocalLock struct {
	key  string
	held bool
}

// NewLocalLock creates a process-local lock for key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire takes the key if no other holder in this process has it.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	localMu.Lock()
	defer localMu.Unlock()
	if localHeld[l.key] {
		return false, nil
	}
	localHeld[l.key] = true
	l.held = true
	return true, nil
}

// Release frees the key if this holder took it.
func (l *LocalLock) Release(context.Context) error {
	localMu.Lock()
	defer localMu.Unlock()
	if l.held {
		delete(localHeld, l.key)
		l.held = false
	}
	return nil
}
