package poll

import (
	"context"
	"sync"
	"time"
)

// Poller runs a fetch on a fixed interval until stopped. Ticks are
// fire-and-forget: a slow fetch is neither cancelled nor coalesced, so
// consumers must treat whichever fetch completed last as current.
type Poller struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start fires the fetch once immediately and then on every interval
// tick. The context handed to fn is cancelled when the poller stops or
// the parent context is cancelled.
func Start(ctx context.Context, interval time.Duration, fn func(context.Context)) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		go fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go fn(ctx)
			}
		}
	}()

	return p
}

// Stop cancels the polling loop and waits for it to exit, so no new
// fetch is launched after it returns. In-flight fetches see their
// context cancelled. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		<-p.done
	})
}
