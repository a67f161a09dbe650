package tracking

// ConditionType names the signal a condition reads.
type ConditionType string

const (
	// Engagement
	CondPageViews      ConditionType = "page_views"
	CondTimeOnSite     ConditionType = "time_on_site"
	CondTimeOnPage     ConditionType = "time_on_page"
	CondScrollDepth    ConditionType = "scroll_depth"
	CondEngagedSession ConditionType = "engaged_session"

	// Visitor
	CondSessionCount     ConditionType = "session_count"
	CondReturningVisitor ConditionType = "returning_visitor"
	CondNewVisitor       ConditionType = "new_visitor"

	// Device
	CondDeviceMobile  ConditionType = "device_mobile"
	CondDeviceDesktop ConditionType = "device_desktop"
	CondDeviceTablet  ConditionType = "device_tablet"
	CondDeviceType    ConditionType = "device_type"

	// Traffic source
	CondReferrerContains ConditionType = "referrer_contains"
	CondUTMSource        ConditionType = "utm_source"
	CondUTMMedium        ConditionType = "utm_medium"
	CondUTMCampaign      ConditionType = "utm_campaign"
	CondTrafficOrganic   ConditionType = "traffic_organic"
	CondTrafficDirect    ConditionType = "traffic_direct"
	CondTrafficSocial    ConditionType = "traffic_social"
	CondTrafficSource    ConditionType = "traffic_source"

	// Page
	CondPageURLContains  ConditionType = "page_url_contains"
	CondPageURLEquals    ConditionType = "page_url_equals"
	CondPagePathContains ConditionType = "page_path_contains"
	CondLandingPage      ConditionType = "landing_page"
	CondExitIntent       ConditionType = "exit_intent"

	// Interaction
	CondClickCount      ConditionType = "click_count"
	CondFormInteraction ConditionType = "form_interaction"
	CondVideoWatched    ConditionType = "video_watched"
	CondElementVisible  ConditionType = "element_visible"
	CondIdleTime        ConditionType = "idle_time"

	// E-commerce
	CondCartValue     ConditionType = "cart_value"
	CondCartItems     ConditionType = "cart_items"
	CondProductViewed ConditionType = "product_viewed"

	// Calendar
	CondDayOfWeek ConditionType = "day_of_week"
	CondHourOfDay ConditionType = "hour_of_day"
	CondDateRange ConditionType = "date_range"

	// Custom
	CondCookieExists       ConditionType = "cookie_exists"
	CondCookieValue        ConditionType = "cookie_value"
	CondLocalStorageExists ConditionType = "localstorage_exists"
	CondJSVariable         ConditionType = "js_variable"
	CondCSSSelectorExists  ConditionType = "css_selector_exists"
)

// Operator is the comparison applied between the resolved value and the
// condition's literal value.
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpStartsWith     Operator = "starts_with"
	OpEndsWith       Operator = "ends_with"
	OpMatches        Operator = "matches"
	OpIsTrue         Operator = "is_true"
	OpIsFalse        Operator = "is_false"
)

// Operators lists every named operator.
var Operators = []Operator{
	OpGreaterOrEqual, OpGreater, OpEqual, OpNotEqual, OpLess, OpLessOrEqual,
	OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpMatches, OpIsTrue, OpIsFalse,
}

// Known reports whether op is one of the named operators.
func (op Operator) Known() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Condition is a single predicate over the context gating an event.
type Condition struct {
	Type     ConditionType `json:"type" yaml:"type"`
	Operator Operator      `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    string        `json:"value,omitempty" yaml:"value,omitempty"`
}

// EffectiveOperator returns the operator, is_true when none was configured.
func (c Condition) EffectiveOperator() Operator {
	if c.Operator == "" {
		return OpIsTrue
	}
	return c.Operator
}
