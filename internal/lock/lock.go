// Package lock guards executor passes against overlap.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held")

// Release frees a lock taken by Acquire.
type Release func(ctx context.Context) error

// Locker is a non-blocking mutual exclusion primitive.
type Locker interface {
	// Acquire takes the lock or returns ErrLockHeld without waiting.
	Acquire(ctx context.Context) (Release, error)
}

// LocalLock is an in-process Locker for single-replica deployments.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock creates a new LocalLock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Compile-time interface check.
var _ Locker = (*LocalLock)(nil)

// Acquire implements Locker.
func (l *LocalLock) Acquire(_ context.Context) (Release, error) {
	if !l.mu.TryLock() {
		return nil, ErrLockHeld
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}
