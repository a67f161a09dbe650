package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// undefinedValue is the resolved value of a signal that does not exist,
// distinct from nil (an explicitly empty signal such as a missing UTM field).
type undefinedValue struct{}

// Undefined is returned by resolvers whose source does not exist.
var Undefined = undefinedValue{}

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// toNumber coerces a resolved value the way parseFloat(String(v)) does:
// the leading numeric prefix of the string form, NaN when there is none.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	}
	s := strings.TrimLeft(toString(v), " \t\n\r\v\f\u00a0\ufeff")
	m := floatPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// toString renders a resolved value as its script string form.
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return "null"
	case undefinedValue:
		return "undefined"
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return formatNumber(s)
	case float32:
		return formatNumber(float64(s))
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy applies script truthiness: false, 0, NaN, "", null and undefined
// are falsy, everything else is truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil, undefinedValue:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	}
	return true
}
