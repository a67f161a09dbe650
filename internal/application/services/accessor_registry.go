package services

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
)

// Accessor reads one named value for expression conditions.
type Accessor func(env *EvaluationEnv) any

// AccessorRegistry is the allow-list of values an expression condition may
// read. Expressions are compiled against an environment built only from the
// registered accessors, so a stored condition can compute over page signals
// but cannot reach anything the embedder did not export.
type AccessorRegistry struct {
	accessors map[string]Accessor
}

// NewAccessorRegistry creates a registry holding the built-in signal accessors.
func NewAccessorRegistry() *AccessorRegistry {
	r := &AccessorRegistry{accessors: make(map[string]Accessor)}
	r.Register("page_views", func(env *EvaluationEnv) any { return env.Context.PageViews })
	r.Register("time_on_site", func(env *EvaluationEnv) any { return env.Context.TimeOnSite })
	r.Register("time_on_page", func(env *EvaluationEnv) any { return env.Context.TimeOnPage })
	r.Register("scroll_depth", func(env *EvaluationEnv) any { return env.Context.ScrollDepth })
	r.Register("session_count", func(env *EvaluationEnv) any { return env.Context.SessionCount })
	r.Register("click_count", func(env *EvaluationEnv) any { return env.Context.ClickCount })
	r.Register("idle_time", func(env *EvaluationEnv) any { return env.Context.IdleTime })
	r.Register("device_type", func(env *EvaluationEnv) any { return string(env.Context.DeviceType) })
	r.Register("traffic_source", func(env *EvaluationEnv) any { return string(env.Context.TrafficSource) })
	r.Register("page_path", func(env *EvaluationEnv) any { return env.Context.PagePath })
	r.Register("cart_value", func(env *EvaluationEnv) any { return globalOrZero(env, "wc_cart_total") })
	r.Register("cart_items", func(env *EvaluationEnv) any { return globalOrZero(env, "wc_cart_count") })
	return r
}

// Register adds or replaces a named accessor.
func (r *AccessorRegistry) Register(name string, fn Accessor) {
	r.accessors[name] = fn
}

// AllowGlobals exposes page globals under their own names. Globals the host
// does not export resolve to nil.
func (r *AccessorRegistry) AllowGlobals(names ...string) {
	for _, name := range names {
		global := name
		r.Register(global, func(env *EvaluationEnv) any {
			if env.Host == nil {
				return nil
			}
			v, _ := env.Host.Global(global)
			return v
		})
	}
}

// Names lists the registered accessors in sorted order.
func (r *AccessorRegistry) Names() []string {
	names := make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate compiles and runs an expression against the registered accessors.
// Identifiers that are not registered are compile errors.
func (r *AccessorRegistry) Evaluate(expression string, env *EvaluationEnv) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("expression %q panicked: %v", expression, rec)
		}
	}()

	values := make(map[string]any, len(r.accessors))
	for name, fn := range r.accessors {
		values[name] = fn(env)
	}

	program, err := expr.Compile(expression, expr.Env(values))
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	out, err := expr.Run(program, values)
	if err != nil {
		return nil, fmt.Errorf("failed to run expression: %w", err)
	}
	return out, nil
}

func globalOrZero(env *EvaluationEnv, name string) any {
	if env.Host == nil {
		return 0
	}
	v, ok := env.Host.Global(name)
	if !ok || !truthy(v) {
		return 0
	}
	return v
}
