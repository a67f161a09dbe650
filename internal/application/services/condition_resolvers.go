package services

import (
	"strings"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

// conditionResolver maps a condition type to the value it reads. It returns
// the literal the value is compared against, normally unchanged.
type conditionResolver func(env *EvaluationEnv, literal string) (any, string)

// field wraps a resolver that only reads the context snapshot.
func field(read func(c tracking.Context) any) conditionResolver {
	return func(env *EvaluationEnv, literal string) (any, string) {
		return read(env.Context), literal
	}
}

func (s *ConditionEvaluationService) resolverTable() map[tracking.ConditionType]conditionResolver {
	return map[tracking.ConditionType]conditionResolver{
		tracking.CondPageViews:      field(func(c tracking.Context) any { return c.PageViews }),
		tracking.CondTimeOnSite:     field(func(c tracking.Context) any { return c.TimeOnSite }),
		tracking.CondTimeOnPage:     field(func(c tracking.Context) any { return c.TimeOnPage }),
		tracking.CondScrollDepth:    field(func(c tracking.Context) any { return c.ScrollDepth }),
		tracking.CondEngagedSession: field(func(c tracking.Context) any { return c.IsEngaged() }),

		tracking.CondSessionCount:     field(func(c tracking.Context) any { return c.SessionCount }),
		tracking.CondReturningVisitor: field(func(c tracking.Context) any { return c.IsReturningVisitor() }),
		tracking.CondNewVisitor:       field(func(c tracking.Context) any { return c.IsNewVisitor() }),

		tracking.CondDeviceMobile:  field(func(c tracking.Context) any { return c.DeviceType == tracking.DeviceMobile }),
		tracking.CondDeviceDesktop: field(func(c tracking.Context) any { return c.DeviceType == tracking.DeviceDesktop }),
		tracking.CondDeviceTablet:  field(func(c tracking.Context) any { return c.DeviceType == tracking.DeviceTablet }),
		tracking.CondDeviceType:    field(func(c tracking.Context) any { return string(c.DeviceType) }),

		tracking.CondReferrerContains: field(func(c tracking.Context) any { return c.Referrer }),
		tracking.CondUTMSource:        field(func(c tracking.Context) any { return optional(c.UTM.Source) }),
		tracking.CondUTMMedium:        field(func(c tracking.Context) any { return optional(c.UTM.Medium) }),
		tracking.CondUTMCampaign:      field(func(c tracking.Context) any { return optional(c.UTM.Campaign) }),
		tracking.CondTrafficOrganic:   field(func(c tracking.Context) any { return c.TrafficSource == tracking.TrafficOrganic }),
		tracking.CondTrafficDirect:    field(func(c tracking.Context) any { return c.TrafficSource == tracking.TrafficDirect }),
		tracking.CondTrafficSocial:    field(func(c tracking.Context) any { return c.TrafficSource == tracking.TrafficSocial }),
		tracking.CondTrafficSource:    field(func(c tracking.Context) any { return string(c.TrafficSource) }),

		tracking.CondPageURLContains:  field(func(c tracking.Context) any { return c.PageURL }),
		tracking.CondPageURLEquals:    field(func(c tracking.Context) any { return c.PageURL }),
		tracking.CondPagePathContains: field(func(c tracking.Context) any { return c.PagePath }),
		tracking.CondLandingPage:      field(func(c tracking.Context) any { return c.IsLandingPage }),
		tracking.CondExitIntent:       field(func(c tracking.Context) any { return c.ExitIntentTriggered }),

		tracking.CondClickCount:      field(func(c tracking.Context) any { return c.ClickCount }),
		tracking.CondFormInteraction: field(func(c tracking.Context) any { return c.FormInteracted }),
		tracking.CondVideoWatched:    field(func(c tracking.Context) any { return c.VideoWatched }),
		tracking.CondElementVisible:  resolveElementVisible,
		tracking.CondIdleTime:        field(func(c tracking.Context) any { return c.IdleTime }),

		tracking.CondCartValue:     func(env *EvaluationEnv, literal string) (any, string) { return globalOrZero(env, "wc_cart_total"), literal },
		tracking.CondCartItems:     func(env *EvaluationEnv, literal string) (any, string) { return globalOrZero(env, "wc_cart_count"), literal },
		tracking.CondProductViewed: resolveProductViewed,

		tracking.CondDayOfWeek: field(func(c tracking.Context) any { return c.DayOfWeek }),
		tracking.CondHourOfDay: field(func(c tracking.Context) any { return c.HourOfDay }),
		tracking.CondDateRange: resolveDateRange,

		tracking.CondCookieExists:       resolveCookieExists,
		tracking.CondCookieValue:        resolveCookieValue,
		tracking.CondLocalStorageExists: resolveLocalStorageExists,
		tracking.CondJSVariable:         s.resolveExpression,
		tracking.CondCSSSelectorExists:  resolveSelectorExists,
	}
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// resolveElementVisible is true when a tracked element with this key was last
// reported visible, or when any element matches the literal as a selector.
func resolveElementVisible(env *EvaluationEnv, literal string) (any, string) {
	if env.Context.VisibleElements[literal] {
		return true, literal
	}
	return selectorExists(env, literal), literal
}

func resolveSelectorExists(env *EvaluationEnv, literal string) (any, string) {
	return selectorExists(env, literal), literal
}

func selectorExists(env *EvaluationEnv, selector string) bool {
	if env.Host == nil || env.Host.Document() == nil {
		return false
	}
	el, err := env.Host.Document().QuerySelector(selector)
	return err == nil && el != nil
}

func resolveProductViewed(env *EvaluationEnv, literal string) (any, string) {
	if env.Host == nil || env.Host.Document() == nil {
		return false, literal
	}
	body := env.Host.Document().Body()
	if body == nil {
		return false, literal
	}
	return hasClass(body.ClassName(), "single-product"), literal
}

// resolveDateRange compares today's UTC date against "from,to" or a single day.
func resolveDateRange(env *EvaluationEnv, literal string) (any, string) {
	today := env.Now.UTC().Format("2006-01-02")
	dates := strings.Split(literal, ",")
	if len(dates) == 2 {
		return today >= dates[0] && today <= dates[1], literal
	}
	return today == literal, literal
}

func resolveCookieExists(env *EvaluationEnv, literal string) (any, string) {
	return cookieValue(env, literal) != "", literal
}

// resolveCookieValue reads the cookie named before "=" and compares it
// against the text after it.
func resolveCookieValue(env *EvaluationEnv, literal string) (any, string) {
	parts := strings.Split(literal, "=")
	expected := ""
	if len(parts) > 1 {
		expected = parts[1]
	}
	return cookieValue(env, parts[0]), expected
}

func resolveLocalStorageExists(env *EvaluationEnv, literal string) (any, string) {
	if env.Host == nil || env.Host.LocalStorage() == nil {
		return false, literal
	}
	_, ok := env.Host.LocalStorage().Get(literal)
	return ok, literal
}

// resolveExpression evaluates the literal through the accessor sandbox.
// Expressions that fail to compile or run resolve to undefined.
func (s *ConditionEvaluationService) resolveExpression(env *EvaluationEnv, literal string) (any, string) {
	v, err := s.accessors.Evaluate(literal, env)
	if err != nil {
		return Undefined, literal
	}
	return v, literal
}

func cookieValue(env *EvaluationEnv, name string) string {
	if env.Host == nil || env.Host.Document() == nil || name == "" {
		return ""
	}
	for _, pair := range strings.Split(env.Host.Document().Cookie(), ";") {
		pair = strings.TrimLeft(pair, " ")
		key, value, found := strings.Cut(pair, "=")
		if found && key == name && value != "" {
			return value
		}
	}
	return ""
}

func hasClass(className, class string) bool {
	for _, c := range strings.Fields(className) {
		if c == class {
			return true
		}
	}
	return false
}
