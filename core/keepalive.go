package orchestration

import (
	"context"
	"sync"
	"time"
)

// liveness sends keepalive messages on a fixed interval until stopped. No
// send starts after stop returns.
type liveness struct {
	mu      sync.Mutex
	stopped bool
	sent    int

	cancel context.CancelFunc
	done   chan struct{}
}

func startLiveness(ctx context.Context, interval time.Duration, send func() error) *liveness {
	ctx, cancel := context.WithCancel(ctx)
	l := &liveness{cancel: cancel, done: make(chan struct{})}

	run := panicSafeNamedWorker("keepalive", func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := l.send(send); err != nil {
					return err
				}
			}
		}
	})

	go func() {
		defer close(l.done)
		if err := run(ctx); err != nil {
			logger.Warn("keepalive stopped", "error", err)
		}
	}()
	return l
}

func (l *liveness) send(send func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	if err := send(); err != nil {
		return err
	}
	l.sent++
	return nil
}

// stop is idempotent and safe on a nil liveness.
func (l *liveness) stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.cancel()
}

func (l *liveness) wait() {
	if l == nil {
		return
	}
	<-l.done
}

func (l *liveness) count() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}
