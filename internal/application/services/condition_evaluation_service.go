package services

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/dlclark/regexp2"
)

// regexMatchTimeout bounds a single `matches` test.
const regexMatchTimeout = 100 * time.Millisecond

// EvaluationEnv is everything a condition may read during one evaluation pass.
// The context snapshot is taken once per pass so every condition of an event
// sees the same signal values.
type EvaluationEnv struct {
	Context tracking.Context
	Host    host.Host
	Now     time.Time
}

// ConditionEvaluationService decides whether event conditions hold.
// It is a pure service: evaluation never mutates the context or the page.
type ConditionEvaluationService struct {
	accessors *AccessorRegistry
	resolvers map[tracking.ConditionType]conditionResolver
	patterns  sync.Map // pattern string -> *regexp2.Regexp, or nil when invalid
}

// NewConditionEvaluationService creates an evaluator. A nil registry gets the
// built-in accessors only.
func NewConditionEvaluationService(accessors *AccessorRegistry) *ConditionEvaluationService {
	if accessors == nil {
		accessors = NewAccessorRegistry()
	}
	s := &ConditionEvaluationService{accessors: accessors}
	s.resolvers = s.resolverTable()
	return s
}

// EvaluateAll reports whether every condition holds. An empty list holds.
func (s *ConditionEvaluationService) EvaluateAll(conditions []tracking.Condition, env *EvaluationEnv) bool {
	for _, cond := range conditions {
		if !s.Evaluate(cond, env) {
			return false
		}
	}
	return true
}

// Evaluate resolves the condition's value and applies its operator. Any
// failure while resolving is contained here and evaluates to false.
func (s *ConditionEvaluationService) Evaluate(cond tracking.Condition, env *EvaluationEnv) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	actual, expected := s.resolve(cond, env)
	return s.Compare(actual, cond.EffectiveOperator(), expected)
}

// resolve returns the value a condition type reads, and the literal it is
// compared against (cookie_value splits its literal into name and value).
func (s *ConditionEvaluationService) resolve(cond tracking.Condition, env *EvaluationEnv) (any, string) {
	resolver, ok := s.resolvers[cond.Type]
	if !ok {
		return 0, cond.Value
	}
	return resolver(env, cond.Value)
}

// Compare applies an operator between a resolved value and a literal.
//
// Relational operators compare numerically and are false when either side is
// not a number. Equality is true when the lower-cased string forms match or
// the numeric forms match; inequality requires both forms to differ. The
// string operators are case-insensitive and `matches` is a case-insensitive
// regular expression test that is false for invalid patterns.
func (s *ConditionEvaluationService) Compare(actual any, op tracking.Operator, expected string) bool {
	numActual := toNumber(actual)
	numExpected := toNumber(expected)
	strActual := strings.ToLower(toString(actual))
	strExpected := strings.ToLower(expected)

	switch op {
	case tracking.OpGreaterOrEqual:
		return numActual >= numExpected
	case tracking.OpGreater:
		return numActual > numExpected
	case tracking.OpLess:
		return numActual < numExpected
	case tracking.OpLessOrEqual:
		return numActual <= numExpected
	case tracking.OpEqual:
		return strActual == strExpected || numActual == numExpected
	case tracking.OpNotEqual:
		return strActual != strExpected && !sameNumber(numActual, numExpected)
	case tracking.OpContains:
		return strings.Contains(strActual, strExpected)
	case tracking.OpNotContains:
		return !strings.Contains(strActual, strExpected)
	case tracking.OpStartsWith:
		return strings.HasPrefix(strActual, strExpected)
	case tracking.OpEndsWith:
		if strExpected == "" {
			return strActual == ""
		}
		return strings.HasSuffix(strActual, strExpected)
	case tracking.OpMatches:
		return s.match(expected, toString(actual))
	case tracking.OpIsTrue:
		return truthy(actual)
	case tracking.OpIsFalse:
		return !truthy(actual)
	}
	return false
}

// sameNumber is numeric equality; NaN is never equal to anything.
func sameNumber(a, b float64) bool {
	return !math.IsNaN(a) && a == b
}

func (s *ConditionEvaluationService) match(pattern, input string) bool {
	var re *regexp2.Regexp
	if cached, ok := s.patterns.Load(pattern); ok {
		re, _ = cached.(*regexp2.Regexp)
	} else {
		compiled, err := regexp2.Compile(pattern, regexp2.ECMAScript|regexp2.IgnoreCase)
		if err == nil {
			compiled.MatchTimeout = regexMatchTimeout
			re = compiled
		}
		s.patterns.Store(pattern, re)
	}
	if re == nil {
		return false
	}
	ok, err := re.MatchString(input)
	return err == nil && ok
}
