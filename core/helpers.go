package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errReadyTimeout = errors.New("timed out waiting for the agent to finish speaking")

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// awaitReady waits for a ready signal. A non-positive timeout waits until
// ctx is done.
func awaitReady(ctx context.Context, ready <-chan struct{}, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
		return nil
	case <-expired:
		return errReadyTimeout
	}
}

func drainReady(ready <-chan struct{}) {
	for {
		select {
		case <-ready:
		default:
			return
		}
	}
}

func signalReady(ready chan<- struct{}) {
	select {
	case ready <- struct{}{}:
	default:
	}
}

type workerRun func(context.Context) error

func panicSafeNamedWorker(name string, run func(context.Context) error) workerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}

		return nil
	}
}
