package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerRunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int64
	ran := make(chan struct{}, 16)

	p := Start(context.Background(), 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	defer p.Stop()

	// First run happens without waiting for a full interval.
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("fetch did not run")
	}

	// And it keeps running.
	require.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, time.Millisecond)
}

func TestPollerStopsDeterministically(t *testing.T) {
	var runs atomic.Int64
	p := Start(context.Background(), 5*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 2 },
		time.Second, time.Millisecond)
	p.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no new fetches after Stop")

	// Stop is idempotent.
	p.Stop()
}

func TestPollerCancelsFetchContextOnStop(t *testing.T) {
	cancelled := make(chan struct{})
	p := Start(context.Background(), time.Hour, func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	// Give the immediate fetch a moment to start blocking.
	time.Sleep(10 * time.Millisecond)
	p.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch context was not cancelled")
	}
}

func TestPollerStopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int64
	p := Start(ctx, 5*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	cancel()
	p.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestOverlappingFetchesAreAllowed(t *testing.T) {
	var inFlight atomic.Int64
	var peak atomic.Int64

	p := Start(context.Background(), 5*time.Millisecond, func(ctx context.Context) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		// Slower than the interval: the next tick must not wait.
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
	})
	defer p.Stop()

	require.Eventually(t, func() bool { return peak.Load() >= 2 },
		time.Second, time.Millisecond, "ticks should overlap a slow fetch")
}
