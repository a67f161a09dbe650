package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
)

func receive(t *testing.T, ch <-chan []byte) *tracking.LogEntry {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("send channel closed")
		}
		var entry tracking.LogEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			t.Fatal(err)
		}
		return &entry
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a broadcast")
	}
	return nil
}

func TestBroadcasterFiltersByEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewEventLogBroadcaster(logging.NewDiscardLogger())
	go b.Run(ctx)

	all := NewEventLogClient(nil, "", 4)
	scrolls := NewEventLogClient(nil, "scroll_depth", 4)
	b.Register(all)
	b.Register(scrolls)

	b.Publish(&tracking.LogEntry{ID: "1", EventName: "landing"})
	b.Publish(&tracking.LogEntry{ID: "2", EventName: "scroll_depth"})

	if e := receive(t, all.Send); e.ID != "1" {
		t.Errorf("first entry = %s", e.ID)
	}
	if e := receive(t, all.Send); e.ID != "2" {
		t.Errorf("second entry = %s", e.ID)
	}
	if e := receive(t, scrolls.Send); e.ID != "2" {
		t.Errorf("filtered entry = %s", e.ID)
	}

	b.Unregister(scrolls)
	if _, ok := <-scrolls.Send; ok {
		t.Error("expected the send channel to be closed")
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}
}

func TestBroadcasterClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewEventLogBroadcaster(logging.NewDiscardLogger())
	done := make(chan struct{})
	go func() { b.Run(ctx); close(done) }()

	c := NewEventLogClient(nil, "", 1)
	b.Register(c)
	cancel()
	<-done

	if _, ok := <-c.Send; ok {
		t.Error("expected the send channel to be closed")
	}
}

func TestBroadcasterAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewEventLogBroadcaster(logging.NewDiscardLogger())
	done := make(chan struct{})
	go func() { b.Run(ctx); close(done) }()
	cancel()
	<-done

	c := NewEventLogClient(nil, "", 1)
	b.Register(c)
	if _, ok := <-c.Send; ok {
		t.Error("late client should be closed")
	}
	b.Unregister(c)
}
