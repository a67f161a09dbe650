package stores

import (
	"testing"
	"time"
)

func value(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestAttributionMerge(t *testing.T) {
	s := NewAttributionStore(30*time.Minute, nil)

	first := s.Merge("sess", map[string]string{"utm_source": "newsletter", "utm_medium": "email", "utm_term": ""})
	if value(first.Source) != "newsletter" || value(first.Medium) != "email" || first.Term != nil {
		t.Fatalf("first = %s %s %s", value(first.Source), value(first.Medium), value(first.Term))
	}

	second := s.Merge("sess", map[string]string{"utm_source": "twitter"})
	if value(second.Source) != "twitter" || value(second.Medium) != "email" {
		t.Errorf("second = %s %s", value(second.Source), value(second.Medium))
	}

	other := s.Merge("other", nil)
	if other.Source != nil {
		t.Error("sessions should not share attribution")
	}
}

func TestAttributionExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	s := NewAttributionStore(30*time.Minute, nil)
	s.now = func() time.Time { return now }

	s.Merge("old", map[string]string{"utm_source": "a"})
	now = now.Add(20 * time.Minute)
	s.Merge("fresh", map[string]string{"utm_source": "b"})
	now = now.Add(15 * time.Minute)

	if _, ok := s.Get("old"); ok {
		t.Error("old session should have expired")
	}
	if got := s.Merge("old", nil); got.Source != nil {
		t.Error("an expired session should start over")
	}
	if n := s.PurgeExpired(); n != 0 {
		t.Errorf("PurgeExpired() = %d, want 0", n)
	}

	now = now.Add(31 * time.Minute)
	if n := s.PurgeExpired(); n != 2 {
		t.Errorf("PurgeExpired() = %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
}
