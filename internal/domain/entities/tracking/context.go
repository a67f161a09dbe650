package tracking

// DeviceType is the user-agent derived device class.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// TrafficSource is the referrer derived acquisition channel.
type TrafficSource string

const (
	TrafficInternal TrafficSource = "internal"
	TrafficOrganic  TrafficSource = "organic"
	TrafficSocial   TrafficSource = "social"
	TrafficReferral TrafficSource = "referral"
	TrafficDirect   TrafficSource = "direct"
)

// Attribution is the UTM attribution persisted for the visitor's session.
// Nil fields were never seen.
type Attribution struct {
	Source   *string `json:"utm_source"`
	Medium   *string `json:"utm_medium"`
	Campaign *string `json:"utm_campaign"`
	Term     *string `json:"utm_term"`
	Content  *string `json:"utm_content"`
	ID       *string `json:"utm_id"`
}

// UTMParams lists the attribution query parameters in payload order.
var UTMParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id"}

// Field returns the pointer slot for a utm_* parameter name.
func (a *Attribution) Field(name string) **string {
	switch name {
	case "utm_source":
		return &a.Source
	case "utm_medium":
		return &a.Medium
	case "utm_campaign":
		return &a.Campaign
	case "utm_term":
		return &a.Term
	case "utm_content":
		return &a.Content
	case "utm_id":
		return &a.ID
	}
	return nil
}

// Context is a consistent snapshot of every trackable signal at evaluation time.
type Context struct {
	PageViews           int
	TimeOnSite          int
	TimeOnPage          int
	ScrollDepth         int
	SessionCount        int
	ClickCount          int
	IdleTime            int
	VideoWatched        int
	DeviceType          DeviceType
	TrafficSource       TrafficSource
	IsLandingPage       bool
	ExitIntentTriggered bool
	FormInteracted      bool
	Referrer            string
	PageURL             string
	PagePath            string
	UTM                 Attribution
	DayOfWeek           int
	HourOfDay           int
	// VisibleElements holds the last visibility reported for each tracked
	// element key.
	VisibleElements map[string]bool
}

// IsNewVisitor reports a first browser session.
func (c Context) IsNewVisitor() bool { return c.SessionCount == 1 }

// IsReturningVisitor reports any later browser session.
func (c Context) IsReturningVisitor() bool { return c.SessionCount > 1 }

// IsEngaged reports an engaged session: ten seconds on site, a second page
// view or half the page scrolled.
func (c Context) IsEngaged() bool {
	return c.TimeOnSite >= 10 || c.PageViews >= 2 || c.ScrollDepth >= 50
}

// Payload builds the base analytics payload every emitted event carries.
func (c Context) Payload() map[string]any {
	referrer := c.Referrer
	if referrer == "" {
		referrer = "direct"
	}
	payload := map[string]any{
		"page_views":            c.PageViews,
		"time_on_site":          c.TimeOnSite,
		"time_on_page":          c.TimeOnPage,
		"scroll_depth":          c.ScrollDepth,
		"session_count":         c.SessionCount,
		"device_type":           string(c.DeviceType),
		"traffic_source":        string(c.TrafficSource),
		"is_new_visitor":        c.IsNewVisitor(),
		"is_returning_visitor":  c.IsReturningVisitor(),
		"is_landing_page":       c.IsLandingPage,
		"referrer":              referrer,
		"page_path":             c.PagePath,
		"click_count":           c.ClickCount,
		"idle_time":             c.IdleTime,
		"exit_intent_triggered": c.ExitIntentTriggered,
		"form_interacted":       c.FormInteracted,
		"day_of_week":           c.DayOfWeek,
		"hour_of_day":           c.HourOfDay,
	}
	utm := c.UTM
	for _, name := range UTMParams {
		if v := *utm.Field(name); v != nil {
			payload[name] = *v
		} else {
			payload[name] = nil
		}
	}
	return payload
}
