// Package tracking provides the domain entities of the behavioral event tracking
// engine: event definitions, conditions, the context snapshot and the
// initialization payload handed to the engine for one page view.
package tracking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EventType groups definitions by the part of the page they observe.
type EventType string

const (
	EventTypeAutomatic EventType = "automatic"
	EventTypeClick     EventType = "click"
	EventTypeScroll    EventType = "scroll"
	EventTypeVideo     EventType = "video"
	EventTypeForm      EventType = "form"
)

// TriggerKind is the dispatch mechanism arming an event.
type TriggerKind string

const (
	TriggerPageLoad   TriggerKind = "pageload"
	TriggerTime       TriggerKind = "time"
	TriggerScroll     TriggerKind = "scroll"
	TriggerClick      TriggerKind = "click"
	TriggerBehavior   TriggerKind = "behavior"
	TriggerPlay       TriggerKind = "play"
	TriggerProgress   TriggerKind = "progress"
	TriggerEnded      TriggerKind = "ended"
	TriggerFormSubmit TriggerKind = "form_submit"

	// triggerCF7 is the legacy name of the form submit trigger.
	triggerCF7 TriggerKind = "wpcf7"
)

// Normalize maps legacy aliases onto their canonical trigger kind.
func (k TriggerKind) Normalize() TriggerKind {
	if k == triggerCF7 {
		return TriggerFormSubmit
	}
	return k
}

// EventDefinition is one configured trackable occurrence. Definitions are
// read-only for the lifetime of a page view.
type EventDefinition struct {
	Name       string      `json:"name" yaml:"name"`
	Enabled    Flag        `json:"enabled" yaml:"enabled"`
	Type       EventType   `json:"type" yaml:"type"`
	Trigger    TriggerKind `json:"trigger" yaml:"trigger"`
	Selector   string      `json:"selector,omitempty" yaml:"selector,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Params     Params      `json:"params,omitempty" yaml:"params,omitempty"`
}

// EffectiveType returns the definition type, automatic when unset.
func (d EventDefinition) EffectiveType() EventType {
	if d.Type == "" {
		return EventTypeAutomatic
	}
	return d.Type
}

// EffectiveTrigger resolves which dispatch mechanism arms the definition.
// Click and form definitions always arm their own listener; the other types
// use the configured trigger, and a scroll definition without a trigger arms
// the scroll listener.
func (d EventDefinition) EffectiveTrigger() TriggerKind {
	switch d.EffectiveType() {
	case EventTypeClick:
		return TriggerClick
	case EventTypeForm:
		return TriggerFormSubmit
	case EventTypeScroll:
		if d.Trigger == "" {
			return TriggerScroll
		}
	}
	return d.Trigger.Normalize()
}

// HasConditions reports whether the definition is gated by any condition.
func (d EventDefinition) HasConditions() bool {
	return len(d.Conditions) > 0
}

// Validate checks the minimum shape the engine needs to arm a definition.
func (d EventDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("event definition has no name")
	}
	return nil
}

// Flag is a boolean that also accepts the 0/1 and "0"/"1" forms settings
// documents commonly carry.
type Flag bool

// UnmarshalJSON accepts booleans, numbers and strings.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Flag(flagValue(raw))
	return nil
}

// UnmarshalYAML accepts booleans, numbers and strings.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = Flag(flagValue(raw))
	return nil
}

func flagValue(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		return s != "" && s != "0" && s != "false" && s != "no" && s != "off"
	}
	return false
}

// Params holds the per-event string configuration.
type Params map[string]string

// String returns the parameter value, or def when it is unset or empty.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Flag reports whether the parameter is "1" or "true".
func (p Params) Flag(key string) bool {
	v := p[key]
	return v == "1" || v == "true"
}

// List splits a comma separated parameter, falling back to def when unset.
// Items are trimmed; empty items are kept so callers see the list the way it
// was configured.
func (p Params) List(key, def string) []string {
	parts := strings.Split(p.String(key, def), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Thresholds parses a comma separated list of integer percentages. Items
// that do not start with a number become invalid thresholds (ok=false) which
// never fire.
func (p Params) Thresholds(key, def string) []Threshold {
	parts := p.List(key, def)
	out := make([]Threshold, 0, len(parts))
	for _, part := range parts {
		n, ok := ParseIntPrefix(part)
		out = append(out, Threshold{Value: n, Valid: ok})
	}
	return out
}

// Int parses the parameter as an integer prefix. Zero and unparsable values
// fall back to def.
func (p Params) Int(key string, def int) int {
	n, ok := ParseIntPrefix(p[key])
	if !ok || n == 0 {
		return def
	}
	return n
}

// Threshold is one configured percentage threshold.
type Threshold struct {
	Value int
	Valid bool
}

// ParseIntPrefix parses the leading integer of s the way browsers parse
// integers out of loosely typed configuration: leading whitespace and a sign
// are accepted and parsing stops at the first non-digit.
func ParseIntPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
