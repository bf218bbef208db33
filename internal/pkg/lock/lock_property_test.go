// Package lock property-based tests for per-channel serialization.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func (cl *ChannelLock) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.locks)
}

// TestConcurrentRosterSafetyProperty tests that read-modify-write updates on
// one channel under the lock lose no updates and leave no idle entries.
func TestConcurrentRosterSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 40).Draw(t, "numOps")
		channelID := fmt.Sprintf("c%d", rapid.IntRange(1, 1000000).Draw(t, "channel"))

		cl := NewChannelLock()
		roster := map[int]bool{}

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func(id int) {
				defer wg.Done()
				_ = cl.WithLockContext(context.Background(), channelID, 0, func() error {
					if !roster[id] {
						roster[id] = true
					}
					return nil
				})
			}(i)
		}
		wg.Wait()

		if len(roster) != numOps {
			t.Fatalf("expected %d entries, got %d", numOps, len(roster))
		}
		if cl.size() != 0 {
			t.Fatalf("expected idle lock table, %d entries left", cl.size())
		}
	})
}

// TestIndependentChannelsProperty tests that every channel's updates are
// applied in full when many channels run at once.
func TestIndependentChannelsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChannels := rapid.IntRange(2, 10).Draw(t, "numChannels")
		opsPerChannel := rapid.IntRange(5, 20).Draw(t, "opsPerChannel")

		cl := NewChannelLock()
		counts := make([]int, numChannels)

		var wg sync.WaitGroup
		wg.Add(numChannels * opsPerChannel)
		for c := 0; c < numChannels; c++ {
			for j := 0; j < opsPerChannel; j++ {
				go func(c int) {
					defer wg.Done()
					id := fmt.Sprintf("chan-%d", c)
					_ = cl.WithLockContext(context.Background(), id, time.Minute, func() error {
						counts[c]++
						return nil
					})
				}(c)
			}
		}
		wg.Wait()

		for c, n := range counts {
			if n != opsPerChannel {
				t.Fatalf("channel %d: expected %d, got %d", c, opsPerChannel, n)
			}
		}
	})
}

// TestTimeoutReleasesProperty tests that callers who time out never run and
// never leave the lock held.
func TestTimeoutReleasesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		waiters := rapid.IntRange(1, 10).Draw(t, "waiters")
		cl := NewChannelLock()

		hold := make(chan struct{})
		held := make(chan struct{})
		go func() {
			_ = cl.WithLockContext(context.Background(), "chan", 0, func() error {
				close(held)
				<-hold
				return nil
			})
		}()
		<-held

		var ran, unexpected atomic.Int32
		var wg sync.WaitGroup
		wg.Add(waiters)
		for i := 0; i < waiters; i++ {
			go func() {
				defer wg.Done()
				err := cl.WithLockContext(context.Background(), "chan", time.Millisecond, func() error {
					ran.Add(1)
					return nil
				})
				if !errors.Is(err, ErrLockTimeout) {
					unexpected.Add(1)
				}
			}()
		}
		wg.Wait()
		close(hold)

		if ran.Load() != 0 || unexpected.Load() != 0 {
			t.Fatalf("waiters should time out: ran=%d other errors=%d", ran.Load(), unexpected.Load())
		}
		if err := cl.WithLockContext(context.Background(), "chan", time.Second, func() error { return nil }); err != nil {
			t.Fatalf("lock should be free after the holder returns: %v", err)
		}
		deadline := time.Now().Add(time.Second)
		for cl.size() != 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if cl.size() != 0 {
			t.Fatalf("expected idle lock table, %d entries left", cl.size())
		}
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	cl := NewChannelLock()

	hold := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = cl.WithLockContext(context.Background(), "busy", 0, func() error {
			close(held)
			<-hold
			return nil
		})
	}()
	<-held

	err := cl.WithLockContext(context.Background(), "busy", 20*time.Millisecond, func() error {
		t.Error("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	close(hold)

	ran := false
	err = cl.WithLockContext(context.Background(), "busy", time.Second, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithLockContext_CancelledContext(t *testing.T) {
	cl := NewChannelLock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cl.WithLockContext(ctx, "chan", time.Second, func() error {
		t.Error("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cl.size())
}

func TestWithLockContext_ReturnsFnError(t *testing.T) {
	want := errors.New("boom")
	err := NewChannelLock().WithLockContext(context.Background(), "chan", time.Second, func() error {
		return want
	})
	assert.ErrorIs(t, err, want)
}
