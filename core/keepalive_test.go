package orchestration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLivenessSendsOnIntervalUntilStopped(t *testing.T) {
	var sends atomic.Int32
	l := startLiveness(context.Background(), 10*time.Millisecond, func() error {
		sends.Add(1)
		return nil
	})

	time.Sleep(55 * time.Millisecond)
	l.stop()
	l.wait()

	stoppedAt := sends.Load()
	if stoppedAt < 2 || stoppedAt > 6 {
		t.Fatalf("expected roughly one send per interval, got %d", stoppedAt)
	}
	if int(stoppedAt) != l.count() {
		t.Fatalf("expected count %d, got %d", stoppedAt, l.count())
	}

	time.Sleep(30 * time.Millisecond)
	if sends.Load() != stoppedAt {
		t.Fatalf("expected no sends after stop")
	}

	l.stop()
}

func TestLivenessStopsOnSendFailure(t *testing.T) {
	var sends atomic.Int32
	l := startLiveness(context.Background(), 5*time.Millisecond, func() error {
		sends.Add(1)
		return errors.New("connection closed")
	})

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatalf("expected liveness to stop after a failed send")
	}
	if sends.Load() != 1 || l.count() != 0 {
		t.Fatalf("expected a single failed attempt, got %d", sends.Load())
	}
}

func TestNilLivenessIsSafe(t *testing.T) {
	var l *liveness
	l.stop()
	l.wait()
	if l.count() != 0 {
		t.Fatalf("expected zero count")
	}
}
