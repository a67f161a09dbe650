package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/browser"
)

type failingSink struct{ calls atomic.Int32 }

func (s *failingSink) Send(context.Context, tracking.SinkRecord) error {
	s.calls.Add(1)
	return errors.New("sink down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitCopiesPayload(t *testing.T) {
	page := newPage(t, browser.PageConfig{})
	emitter := NewEventEmitter(page, nil, false, "", discardLogger())

	payload := map[string]any{"page_views": 1, "event": "spoofed"}
	emitter.Emit("landing", payload)
	payload["page_views"] = 99

	records := page.DataLayer().Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0]["event"] != "landing" || records[0]["page_views"] != 1 {
		t.Errorf("record = %v", records[0])
	}
}

func TestEmitSinkFailureIsContained(t *testing.T) {
	page := newPage(t, browser.PageConfig{})
	sink := &failingSink{}
	emitter := NewEventEmitter(page, sink, true, "tok", discardLogger())

	emitter.Emit("landing", map[string]any{"page_views": 1})
	emitter.Emit("landing", map[string]any{"page_views": 1})
	emitter.Wait()

	if n := sink.calls.Load(); n != 2 {
		t.Errorf("sink calls = %d, want 2", n)
	}
	if page.DataLayer().Count("landing") != 2 {
		t.Error("expected both events on the queue")
	}
}
