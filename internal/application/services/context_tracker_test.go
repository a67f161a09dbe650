package services

import (
	"net/url"
	"testing"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/browser"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      tracking.DeviceType
	}{
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", tracking.DeviceTablet},
		{"android tablet", "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", tracking.DeviceTablet},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36", tracking.DeviceMobile},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", tracking.DeviceMobile},
		{"desktop", browser.DefaultUserAgent, tracking.DeviceDesktop},
		{"empty", "", tracking.DeviceDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDevice(tt.userAgent); got != tt.want {
				t.Errorf("ClassifyDevice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyTraffic(t *testing.T) {
	location, _ := url.Parse("https://shop.example.com/products")
	tests := []struct {
		referrer string
		want     tracking.TrafficSource
		landing  bool
	}{
		{"", tracking.TrafficDirect, true},
		{"https://shop.example.com/cart", tracking.TrafficInternal, false},
		{"https://www.google.com/", tracking.TrafficOrganic, true},
		{"https://m.facebook.com/story", tracking.TrafficSocial, true},
		{"https://news.ycombinator.com/item", tracking.TrafficReferral, true},
	}
	for _, tt := range tests {
		t.Run(tt.referrer, func(t *testing.T) {
			if got := ClassifyTraffic(tt.referrer, location); got != tt.want {
				t.Errorf("ClassifyTraffic() = %q, want %q", got, tt.want)
			}
			if got := IsLandingPage(tt.referrer, location); got != tt.landing {
				t.Errorf("IsLandingPage() = %v, want %v", got, tt.landing)
			}
		})
	}
}

func TestScrollPercent(t *testing.T) {
	tests := []struct {
		name   string
		scroll host.Scroll
		want   int
		ok     bool
	}{
		{"half", host.Scroll{ScrollTop: 2000, ScrollHeight: 5000, ClientHeight: 1000}, 50, true},
		{"rounds", host.Scroll{ScrollTop: 1, ScrollHeight: 201, ClientHeight: 1}, 1, true},
		{"clamped high", host.Scroll{ScrollTop: 5000, ScrollHeight: 5000, ClientHeight: 1000}, 100, true},
		{"clamped low", host.Scroll{ScrollTop: -50, ScrollHeight: 5000, ClientHeight: 1000}, 0, true},
		{"not scrollable", host.Scroll{ScrollTop: 0, ScrollHeight: 800, ClientHeight: 800}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScrollPercent(tt.scroll)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ScrollPercent() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTrackerSessionCounting(t *testing.T) {
	session := browser.NewMemoryStorage()
	local := browser.NewMemoryStorage()

	first := NewContextTracker(newPage(t, browser.PageConfig{SessionStorage: session, LocalStorage: local}), "", tracking.Attribution{}, nil)
	second := NewContextTracker(newPage(t, browser.PageConfig{SessionStorage: session, LocalStorage: local}), "", tracking.Attribution{}, nil)
	third := NewContextTracker(newPage(t, browser.PageConfig{LocalStorage: local}), "", tracking.Attribution{}, nil)

	tests := []struct {
		name     string
		tracker  *ContextTracker
		views    int
		sessions int
	}{
		{"first page", first, 1, 1},
		{"same session", second, 2, 1},
		{"new session", third, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.tracker.Snapshot()
			if snap.PageViews != tt.views || snap.SessionCount != tt.sessions {
				t.Errorf("page views %d, sessions %d; want %d, %d", snap.PageViews, snap.SessionCount, tt.views, tt.sessions)
			}
		})
	}
	if v, _ := local.Get("anticipater_session_count"); v != "2" {
		t.Errorf("persisted session count = %q, want 2", v)
	}
}

func TestTrackerUnavailableStorage(t *testing.T) {
	session := browser.NewMemoryStorage()
	session.SetUnavailable(true)

	for i := 0; i < 2; i++ {
		tracker := NewContextTracker(newPage(t, browser.PageConfig{SessionStorage: session}), "", tracking.Attribution{}, nil)
		if views := tracker.Snapshot().PageViews; views != 1 {
			t.Errorf("page views = %d, want 1", views)
		}
	}
}

func TestTrackerClocksAndIdle(t *testing.T) {
	session := browser.NewMemoryStorage()
	page := newPage(t, browser.PageConfig{SessionStorage: session})
	tracker := NewContextTracker(page, "", tracking.Attribution{}, nil)
	tracker.Attach()

	page.Advance(3 * time.Second)
	snap := tracker.Snapshot()
	if snap.TimeOnPage != 3 || snap.TimeOnSite != 3 {
		t.Errorf("time on page %d, on site %d; want 3, 3", snap.TimeOnPage, snap.TimeOnSite)
	}
	if snap.IdleTime != 2 {
		t.Errorf("idle time = %d, want 2", snap.IdleTime)
	}

	page.ScrollToPercent(10)
	if idle := tracker.Snapshot().IdleTime; idle != 0 {
		t.Errorf("idle time after scroll = %d, want 0", idle)
	}

	next := NewContextTracker(newPage(t, browser.PageConfig{SessionStorage: session}), "", tracking.Attribution{}, nil)
	if got := next.Snapshot(); got.TimeOnSite != 3 || got.TimeOnPage != 0 {
		t.Errorf("next page time on site %d, on page %d; want 3, 0", got.TimeOnSite, got.TimeOnPage)
	}
}

func TestTrackerInteractionSignals(t *testing.T) {
	page := newPage(t, browser.PageConfig{HTML: `<html><body>
<a id="link" href="/x">x</a>
<form><input id="email" type="email"></form>
<section id="pricing" data-anticipater-track="pricing"></section>
</body></html>`})
	tracker := NewContextTracker(page, "", tracking.Attribution{}, nil)
	tracker.Attach()

	if err := page.Focus("#link"); err != nil {
		t.Fatal(err)
	}
	if tracker.Snapshot().FormInteracted {
		t.Error("focusing a link is not form interaction")
	}
	if err := page.Focus("#email"); err != nil {
		t.Fatal(err)
	}
	if err := page.Click("#link"); err != nil {
		t.Fatal(err)
	}
	page.MouseOut(200)
	if tracker.Snapshot().ExitIntentTriggered {
		t.Error("exit intent latched away from the top edge")
	}
	page.MouseOut(4)
	page.ScrollToPercent(80)
	page.ScrollToPercent(20)
	if err := page.SetVisible("#pricing", true); err != nil {
		t.Fatal(err)
	}

	snap := tracker.Snapshot()
	if !snap.FormInteracted || !snap.ExitIntentTriggered {
		t.Errorf("form %v, exit intent %v; want both", snap.FormInteracted, snap.ExitIntentTriggered)
	}
	if snap.ClickCount != 1 {
		t.Errorf("click count = %d, want 1", snap.ClickCount)
	}
	if snap.ScrollDepth != 80 {
		t.Errorf("scroll depth = %d, want 80", snap.ScrollDepth)
	}
	if !snap.VisibleElements["pricing"] {
		t.Error("expected pricing to be visible")
	}

	if err := page.SetVisible("#pricing", false); err != nil {
		t.Fatal(err)
	}
	if tracker.Snapshot().VisibleElements["pricing"] {
		t.Error("expected pricing to be hidden")
	}
}
