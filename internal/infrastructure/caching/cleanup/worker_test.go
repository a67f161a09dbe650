package cleanup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
)

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeExpired() int {
	p.calls.Add(1)
	return 1
}

func TestWorkerRunsUntilCancelled(t *testing.T) {
	p := &countingPurger{}
	w := NewWorker("test", p, 5*time.Millisecond, logging.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { w.Start(ctx); close(done) }()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker never ran")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRunOnce(t *testing.T) {
	p := &countingPurger{}
	w := NewWorker("test", p, time.Hour, logging.NewDiscardLogger())
	if n := w.RunOnce(); n != 1 || p.calls.Load() != 1 {
		t.Errorf("RunOnce() = %d, calls %d", n, p.calls.Load())
	}
}
