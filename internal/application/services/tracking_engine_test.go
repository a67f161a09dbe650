package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/browser"
)

// testStart is a Tuesday afternoon.
var testStart = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func newPage(t *testing.T, cfg browser.PageConfig) *browser.Page {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "https://shop.example.com/blog/post"
	}
	if cfg.Start.IsZero() {
		cfg.Start = testStart
	}
	page, err := browser.NewPage(cfg)
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	return page
}

func startEngine(t *testing.T, page *browser.Page, events ...tracking.EventDefinition) *TrackingEngine {
	t.Helper()
	engine := NewTrackingEngine(&tracking.Bootstrap{Events: events}, EngineOptions{})
	if !engine.Start(page) {
		t.Fatal("expected the engine to start")
	}
	return engine
}

type recordingSink struct {
	mu      sync.Mutex
	records []tracking.SinkRecord
}

func (s *recordingSink) Send(_ context.Context, r tracking.SinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) all() []tracking.SinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tracking.SinkRecord(nil), s.records...)
}

func TestEngineDoesNotStartWithoutEvents(t *testing.T) {
	page := newPage(t, browser.PageConfig{})

	if NewTrackingEngine(nil, EngineOptions{}).Start(page) {
		t.Error("expected a nil bootstrap not to start")
	}
	engine := NewTrackingEngine(&tracking.Bootstrap{}, EngineOptions{})
	if engine.Start(page) {
		t.Error("expected an empty event list not to start")
	}
	if engine.Started() || engine.Tracker() != nil {
		t.Error("expected no tracking state")
	}
}

func TestEngineBasePayload(t *testing.T) {
	page := newPage(t, browser.PageConfig{})
	startEngine(t, page, tracking.EventDefinition{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad})

	records := page.DataLayer().Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	checks := map[string]any{
		"event":          "landing",
		"page_path":      "/blog/post",
		"page_views":     1,
		"session_count":  1,
		"device_type":    "desktop",
		"traffic_source": "direct",
		"referrer":       "direct",
		"is_new_visitor": true,
		"day_of_week":    2,
		"hour_of_day":    14,
	}
	for key, want := range checks {
		if r[key] != want {
			t.Errorf("%s = %v, want %v", key, r[key], want)
		}
	}
	if v, ok := r["utm_source"]; !ok || v != nil {
		t.Errorf("utm_source = %v, want explicit nil", v)
	}
}

func TestEngineDebugSink(t *testing.T) {
	page := newPage(t, browser.PageConfig{})
	sink := &recordingSink{}
	engine := NewTrackingEngine(&tracking.Bootstrap{
		Events: []tracking.EventDefinition{{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad}},
		Debug:  true,
		Token:  "tok",
	}, EngineOptions{Sink: sink})
	engine.Start(page)
	engine.Wait()

	records := sink.all()
	if len(records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(records))
	}
	r := records[0]
	if r.EventName != "landing" || r.Token != "tok" || r.PageURL != "https://shop.example.com/blog/post" {
		t.Errorf("unexpected sink record %+v", r)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(r.EventData), &data); err != nil {
		t.Fatalf("event data is not JSON: %v", err)
	}
	if _, ok := data["event"]; ok {
		t.Error("event data should not carry the event key")
	}
	if data["page_path"] != "/blog/post" {
		t.Errorf("page_path = %v", data["page_path"])
	}
}

func TestEngineDebugOffSkipsSink(t *testing.T) {
	page := newPage(t, browser.PageConfig{})
	sink := &recordingSink{}
	engine := NewTrackingEngine(&tracking.Bootstrap{
		Events: []tracking.EventDefinition{{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad}},
	}, EngineOptions{Sink: sink})
	engine.Start(page)
	engine.Wait()

	if n := len(sink.all()); n != 0 {
		t.Errorf("sink records = %d, want 0", n)
	}
	if page.DataLayer().Count("landing") != 1 {
		t.Error("expected the event on the queue")
	}
}

func TestEngineWaitsForConsent(t *testing.T) {
	page := newPage(t, browser.PageConfig{Consent: host.ConsentState{FrameworkPresent: true}})
	engine := startEngine(t, page, tracking.EventDefinition{Name: "landing", Enabled: true, Trigger: tracking.TriggerPageLoad})

	if engine.Started() || page.DataLayer().Len() != 0 {
		t.Fatal("expected nothing before consent")
	}

	page.AcceptConsent()
	page.AcceptConsent()
	page.Load()

	if !engine.Started() {
		t.Fatal("expected tracking to start after consent")
	}
	if n := page.DataLayer().Count("landing"); n != 1 {
		t.Errorf("landing fired %d times, want 1", n)
	}
}
