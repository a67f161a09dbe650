package services

import (
	"io"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

const (
	tickInterval     = time.Second
	idleAfter        = 1000 * time.Millisecond
	exitIntentMargin = 10
)

var (
	tabletPattern = regexp2.MustCompile(`(tablet|ipad|playbook|silk)|(android(?!.*mobi))`, regexp2.IgnoreCase)
	mobilePattern = regexp2.MustCompile(`Mobile|Android|iP(hone|od)|IEMobile|BlackBerry|Kindle|Silk-Accelerated|(hpw|web)OS|Opera M(obi|ini)`, regexp2.None)

	organicReferrers = []string{"google", "bing", "yahoo", "duckduckgo", "baidu"}
	socialReferrers  = []string{"facebook", "twitter", "linkedin", "instagram", "pinterest", "tiktok"}
)

// ContextTracker owns the signal state of one page view. Every field has a
// single writer: the listener that observes it.
type ContextTracker struct {
	host   host.Host
	prefix string
	logger *slog.Logger

	pageViews      int
	timeOnSite     int
	timeOnPage     int
	scrollDepth    int
	sessionCount   int
	clickCount     int
	idleTime       int
	videoWatched   int
	exitIntent     bool
	formInteracted bool
	lastActivity   time.Time

	deviceType    tracking.DeviceType
	trafficSource tracking.TrafficSource
	landingPage   bool
	utm           tracking.Attribution
	visible       map[string]bool
}

// NewContextTracker loads the persisted session state for a new page view and
// records the page view itself. A nil logger discards.
func NewContextTracker(h host.Host, prefix string, utm tracking.Attribution, logger *slog.Logger) *ContextTracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if prefix == "" {
		prefix = tracking.DefaultStoragePrefix
	}

	t := &ContextTracker{
		host:          h,
		prefix:        prefix,
		logger:        logger,
		lastActivity:  h.Now(),
		deviceType:    ClassifyDevice(h.UserAgent()),
		trafficSource: ClassifyTraffic(h.Referrer(), h.Location()),
		landingPage:   IsLandingPage(h.Referrer(), h.Location()),
		utm:           utm,
		visible:       make(map[string]bool),
	}

	session := h.SessionStorage()
	durable := h.LocalStorage()
	t.pageViews = readInt(session, t.key("page_views")) + 1
	t.timeOnSite = readInt(session, t.key("time_on_site"))
	t.sessionCount = readInt(durable, t.key("session_count"))

	if _, ok := read(session, t.key("session_id")); !ok {
		marker := uuid.NewString()
		if id, err := uuid.NewV7(); err == nil {
			marker = id.String()
		}
		t.write(session, t.key("session_id"), marker)
		t.sessionCount++
		t.write(durable, t.key("session_count"), strconv.Itoa(t.sessionCount))
		t.logger.Debug("New browser session", "sessionCount", t.sessionCount)
	}
	t.write(session, t.key("page_views"), strconv.Itoa(t.pageViews))

	return t
}

// Attach subscribes the tracker to the page's notifications, starts the
// one-second clock and observes elements marked for visibility tracking.
func (t *ContextTracker) Attach() {
	t.host.Listen(host.KindScroll, func(n host.Notification) {
		if s, ok := n.(host.Scroll); ok {
			t.HandleScroll(s)
		}
	})
	t.host.Listen(host.KindClick, func(host.Notification) { t.HandleClick() })
	t.host.Listen(host.KindFocus, func(n host.Notification) {
		if f, ok := n.(host.Focus); ok {
			t.HandleFocus(f.Target)
		}
	})
	t.host.Listen(host.KindMouseOut, func(n host.Notification) {
		if m, ok := n.(host.MouseOut); ok {
			t.HandleMouseOut(m.ClientY)
		}
	})
	t.host.Every(tickInterval, t.Tick)
	t.observeVisibility()
}

func (t *ContextTracker) observeVisibility() {
	doc := t.host.Document()
	if doc == nil {
		return
	}
	attr := "data-" + t.prefix + "-track"
	for _, el := range trackedElements(doc, attr) {
		key, _ := el.Attr(attr)
		if key == "" {
			continue
		}
		t.host.OnVisibilityChange(el, func(visible bool) {
			t.visible[key] = visible
		})
	}
}

func trackedElements(doc host.Document, attr string) []host.Element {
	els, err := doc.QuerySelectorAll("[" + attr + "]")
	if err != nil {
		return nil
	}
	return els
}

// HandleScroll raises the stored scroll depth when the page was scrolled
// further than before and counts as activity.
func (t *ContextTracker) HandleScroll(s host.Scroll) {
	if percent, ok := ScrollPercent(s); ok && percent > t.scrollDepth {
		t.scrollDepth = percent
	}
	t.markActive()
}

// HandleClick counts a click anywhere on the page.
func (t *ContextTracker) HandleClick() {
	t.clickCount++
	t.markActive()
}

// HandleFocus marks form interaction when a form field receives focus.
func (t *ContextTracker) HandleFocus(target host.Element) {
	if target == nil {
		return
	}
	switch target.Tag() {
	case "input", "textarea", "select":
		t.formInteracted = true
		t.markActive()
	}
}

// HandleMouseOut latches exit intent when the pointer leaves through the top edge.
func (t *ContextTracker) HandleMouseOut(clientY float64) {
	if clientY < exitIntentMargin && !t.exitIntent {
		t.exitIntent = true
		t.logger.Debug("Exit intent detected")
	}
}

// Tick advances the clocks by one second.
func (t *ContextTracker) Tick() {
	t.timeOnSite++
	t.timeOnPage++
	t.write(t.host.SessionStorage(), t.key("time_on_site"), strconv.Itoa(t.timeOnSite))

	if t.host.Now().Sub(t.lastActivity) > idleAfter {
		t.idleTime++
	}
}

// RecordVideoProgress keeps the furthest progress percent reached by any video.
func (t *ContextTracker) RecordVideoProgress(percent int) {
	if percent > t.videoWatched {
		t.videoWatched = percent
	}
}

// TimeOnPage returns the seconds spent on the current page.
func (t *ContextTracker) TimeOnPage() int { return t.timeOnPage }

// Prefix returns the storage key prefix.
func (t *ContextTracker) Prefix() string { return t.prefix }

// Snapshot returns a consistent copy of every signal.
func (t *ContextTracker) Snapshot() tracking.Context {
	now := t.host.Now()
	loc := t.host.Location()
	var pageURL, pagePath string
	if loc != nil {
		pageURL = loc.String()
		pagePath = loc.Path
		if pagePath == "" {
			pagePath = "/"
		}
	}

	visible := make(map[string]bool, len(t.visible))
	for k, v := range t.visible {
		visible[k] = v
	}

	return tracking.Context{
		PageViews:           t.pageViews,
		TimeOnSite:          t.timeOnSite,
		TimeOnPage:          t.timeOnPage,
		ScrollDepth:         t.scrollDepth,
		SessionCount:        t.sessionCount,
		ClickCount:          t.clickCount,
		IdleTime:            t.idleTime,
		VideoWatched:        t.videoWatched,
		DeviceType:          t.deviceType,
		TrafficSource:       t.trafficSource,
		IsLandingPage:       t.landingPage,
		ExitIntentTriggered: t.exitIntent,
		FormInteracted:      t.formInteracted,
		Referrer:            t.host.Referrer(),
		PageURL:             pageURL,
		PagePath:            pagePath,
		UTM:                 t.utm,
		DayOfWeek:           int(now.Weekday()),
		HourOfDay:           now.Hour(),
		VisibleElements:     visible,
	}
}

func (t *ContextTracker) markActive() {
	t.lastActivity = t.host.Now()
	t.idleTime = 0
}

func (t *ContextTracker) key(name string) string {
	return t.prefix + "_" + name
}

func (t *ContextTracker) write(store host.Storage, key, value string) {
	if store == nil {
		return
	}
	if err := store.Set(key, value); err != nil {
		t.logger.Debug("Storage write failed", "key", key, "error", err.Error())
	}
}

func read(store host.Storage, key string) (string, bool) {
	if store == nil {
		return "", false
	}
	return store.Get(key)
}

func readInt(store host.Storage, key string) int {
	v, _ := read(store, key)
	n, _ := tracking.ParseIntPrefix(v)
	return n
}

// ScrollPercent converts scroll metrics into a whole percentage in [0,100].
// It reports false when the page cannot scroll.
func ScrollPercent(s host.Scroll) (int, bool) {
	scrollable := s.ScrollHeight - s.ClientHeight
	if scrollable <= 0 {
		return 0, false
	}
	percent := int(math.Floor(s.ScrollTop/scrollable*100 + 0.5))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

// ClassifyDevice derives the device class from a user-agent string. Tablet
// patterns are checked before mobile ones.
func ClassifyDevice(userAgent string) tracking.DeviceType {
	if ok, _ := tabletPattern.MatchString(userAgent); ok {
		return tracking.DeviceTablet
	}
	if ok, _ := mobilePattern.MatchString(userAgent); ok {
		return tracking.DeviceMobile
	}
	return tracking.DeviceDesktop
}

// ClassifyTraffic derives the acquisition channel from the referrer.
func ClassifyTraffic(referrer string, location *url.URL) tracking.TrafficSource {
	ref := strings.ToLower(referrer)
	if ref == "" {
		return tracking.TrafficDirect
	}
	if sameHost(ref, location) {
		return tracking.TrafficInternal
	}
	for _, engine := range organicReferrers {
		if strings.Contains(ref, engine) {
			return tracking.TrafficOrganic
		}
	}
	for _, network := range socialReferrers {
		if strings.Contains(ref, network) {
			return tracking.TrafficSocial
		}
	}
	return tracking.TrafficReferral
}

// IsLandingPage reports whether the visitor arrived from outside the site.
func IsLandingPage(referrer string, location *url.URL) bool {
	return referrer == "" || !sameHost(strings.ToLower(referrer), location)
}

func sameHost(referrer string, location *url.URL) bool {
	if location == nil || location.Hostname() == "" {
		return false
	}
	hostname := strings.ToLower(location.Hostname())
	if u, err := url.Parse(referrer); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname()) == hostname
	}
	return strings.Contains(referrer, hostname)
}
