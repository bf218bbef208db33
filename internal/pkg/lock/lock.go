// Package lock provides channel-level locking so that interactions for the
// same channel are handled one at a time, start to finish.
package lock

import (
	"context"
	"sync"
	"time"
)

// channelMutex wraps a mutex with a count of holders and waiters so idle
// entries can be dropped.
type channelMutex struct {
	mu   sync.Mutex
	refs int
}

// ChannelLock hands out one mutex per channel id. Channels never block each
// other.
type ChannelLock struct {
	locks map[string]*channelMutex
	mu    sync.Mutex
}

// NewChannelLock creates a new ChannelLock instance.
func NewChannelLock() *ChannelLock {
	return &ChannelLock{locks: make(map[string]*channelMutex)}
}

// acquire returns the mutex for the channel and registers the caller as a
// holder or waiter.
func (cl *ChannelLock) acquire(channelID string) *channelMutex {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m, ok := cl.locks[channelID]
	if !ok {
		m = &channelMutex{}
		cl.locks[channelID] = m
	}
	m.refs++
	return m
}

// release drops the caller's reference and forgets the mutex once no one
// holds or waits for it.
func (cl *ChannelLock) release(channelID string, m *channelMutex) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(cl.locks, channelID)
	}
}

// lockWithTimeout attempts to acquire the channel's mutex before ctx ends.
// On failure the pending Lock is handed back once it lands.
func (cl *ChannelLock) lockWithTimeout(ctx context.Context, channelID string) (*channelMutex, bool) {
	m := cl.acquire(channelID)
	if m.mu.TryLock() {
		return m, true
	}

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return m, true
	case <-ctx.Done():
		go func() {
			<-done
			m.mu.Unlock()
			cl.release(channelID, m)
		}()
		return nil, false
	}
}

func (cl *ChannelLock) unlock(channelID string, m *channelMutex) {
	m.mu.Unlock()
	cl.release(channelID, m)
}

// WithLockContext executes fn while holding the channel's lock. It gives up
// with ErrLockTimeout once timeout passes or ctx ends. A timeout of zero
// waits for ctx alone.
func (cl *ChannelLock) WithLockContext(ctx context.Context, channelID string, timeout time.Duration, fn func() error) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m, ok := cl.lockWithTimeout(waitCtx, channelID)
	if !ok {
		return ErrLockTimeout
	}
	defer cl.unlock(channelID, m)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
