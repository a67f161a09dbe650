package services

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
)

const (
	defaultTriggerTime      = 10
	defaultScrollThresholds = "25,50,75,90"
	interactiveSelector     = `a, button, [role="button"]`
)

// TriggerDispatcher arms every enabled event definition and fires it through
// the emitter when its trigger and conditions are met.
type TriggerDispatcher struct {
	host      host.Host
	tracker   *ContextTracker
	evaluator *ConditionEvaluationService
	emitter   *EventEmitter
	logger    *slog.Logger

	clickEvents []tracking.EventDefinition
	formEvents  []tracking.EventDefinition
	videoEvents []tracking.EventDefinition
	conditional []tracking.EventDefinition
}

// NewTriggerDispatcher creates a dispatcher reading signals from tracker.
func NewTriggerDispatcher(h host.Host, tracker *ContextTracker, evaluator *ConditionEvaluationService, emitter *EventEmitter, logger *slog.Logger) *TriggerDispatcher {
	return &TriggerDispatcher{
		host:      h,
		tracker:   tracker,
		evaluator: evaluator,
		emitter:   emitter,
		logger:    logger,
	}
}

// Arm sets up the listeners and timers of every definition. A definition
// that fails to arm is logged and skipped; the others still arm.
func (d *TriggerDispatcher) Arm(events []tracking.EventDefinition) {
	for _, def := range events {
		if isVideoTrigger(def.EffectiveTrigger()) {
			// Disabled video definitions still contribute to the background heuristic.
			d.videoEvents = append(d.videoEvents, def)
		}
		if !def.Enabled {
			continue
		}
		if err := def.Validate(); err != nil {
			d.logger.Warn("Skipping invalid event definition", "error", err.Error())
			continue
		}
		if def.HasConditions() {
			d.conditional = append(d.conditional, def)
		}
		d.guard(def.Name, "arm", func() { d.arm(def) })
	}

	if len(d.conditional) > 0 {
		d.host.Every(tickInterval, d.processConditional)
		d.processConditional()
	}
	if len(d.clickEvents) > 0 {
		d.host.Listen(host.KindClick, d.handleClick)
	}
	if len(d.formEvents) > 0 {
		d.host.Listen(host.KindFormSubmit, d.handleFormSubmit)
	}
	if len(d.videoEvents) > 0 {
		newVideoTracker(d, d.videoEvents).start()
	}
}

func (d *TriggerDispatcher) arm(def tracking.EventDefinition) {
	switch trigger := def.EffectiveTrigger(); trigger {
	case tracking.TriggerPageLoad:
		d.armPageLoad(def)
	case tracking.TriggerTime:
		d.armTime(def)
	case tracking.TriggerScroll:
		d.armScroll(def)
	case tracking.TriggerClick:
		d.clickEvents = append(d.clickEvents, def)
	case tracking.TriggerFormSubmit:
		d.formEvents = append(d.formEvents, def)
	case tracking.TriggerPlay, tracking.TriggerProgress, tracking.TriggerEnded:
		// armed per video element
	default:
		d.logger.Debug("No listener for trigger", "event", def.Name, "trigger", string(trigger))
		return
	}
	d.logger.Debug("Event armed", "event", def.Name, "trigger", string(def.EffectiveTrigger()))
}

// armPageLoad fires once per storage key when the conditions hold now.
func (d *TriggerDispatcher) armPageLoad(def tracking.EventDefinition) {
	if d.pageLoadClaimed(def) || !d.conditionsHold(def) {
		return
	}
	d.claimPageLoad(def)

	payload := d.basePayload()
	mergeJSON(payload, def.Params["event_params"])
	d.emitter.Emit(def.Name, payload)
}

// pageLoadStore resolves the storage key and scope of a pageload definition.
func (d *TriggerDispatcher) pageLoadStore(def tracking.EventDefinition) (host.Storage, string) {
	key := def.Params.String("storage_key", d.tracker.Prefix()+"_"+def.Name)
	if def.Params["storage_type"] == "local" {
		return d.host.LocalStorage(), key
	}
	return d.host.SessionStorage(), key
}

func (d *TriggerDispatcher) pageLoadClaimed(def tracking.EventDefinition) bool {
	store, key := d.pageLoadStore(def)
	v, _ := read(store, key)
	return v != ""
}

func (d *TriggerDispatcher) claimPageLoad(def tracking.EventDefinition) {
	store, key := d.pageLoadStore(def)
	d.tracker.write(store, key, strconv.FormatInt(d.host.Now().UnixMilli(), 10))
}

// armTime fires once per page when the time on page reaches the threshold.
func (d *TriggerDispatcher) armTime(def tracking.EventDefinition) {
	threshold := def.Params.Int("trigger_time", defaultTriggerTime)
	key := d.tracker.Prefix() + "_time_" + def.Name
	fired := false

	d.host.Every(tickInterval, func() {
		d.guard(def.Name, "time", func() {
			if fired || d.tracker.TimeOnPage() < threshold || !d.conditionsHold(def) {
				return
			}
			fired = true
			d.tracker.write(d.host.SessionStorage(), key, "1")

			payload := d.basePayload()
			payload["engagement_time_msec"] = d.tracker.TimeOnPage() * 1000
			d.emitter.Emit(def.Name, payload)
		})
	})
}

// armScroll fires once per threshold crossed on this page.
func (d *TriggerDispatcher) armScroll(def tracking.EventDefinition) {
	thresholds := def.Params.Thresholds("thresholds", defaultScrollThresholds)
	fired := make(map[int]bool, len(thresholds))

	d.host.Listen(host.KindScroll, func(n host.Notification) {
		s, ok := n.(host.Scroll)
		if !ok {
			return
		}
		d.guard(def.Name, "scroll", func() {
			if !d.conditionsHold(def) {
				return
			}
			percent, ok := ScrollPercent(s)
			if !ok {
				return
			}
			for _, t := range thresholds {
				if !t.Valid || percent < t.Value || fired[t.Value] {
					continue
				}
				fired[t.Value] = true
				payload := d.basePayload()
				payload["percent_scrolled"] = t.Value
				d.emitter.Emit(def.Name, payload)
			}
		})
	})
}

// handleClick fires every click definition matching the nearest interactive
// element. Clicks are never deduplicated.
func (d *TriggerDispatcher) handleClick(n host.Notification) {
	click, ok := n.(host.Click)
	if !ok || click.Target == nil {
		return
	}
	el, err := click.Target.Closest(interactiveSelector)
	if err != nil || el == nil {
		return
	}
	target := describeClickTarget(el)

	for _, def := range d.clickEvents {
		d.guard(def.Name, "click", func() {
			if !selectorMatches(el, def.Selector, target) || !d.conditionsHold(def) {
				return
			}
			payload := d.basePayload()
			enrichClick(payload, target, def.Params)
			d.emitter.Emit(def.Name, payload)
		})
	}
}

// selectorMatches tests the clicked element against a definition selector.
// Selectors that are not valid CSS fall back to substring tests: each comma
// separated part against the href, or the whole selector against href and
// class list.
func selectorMatches(el host.Element, selector string, target clickTarget) bool {
	if selector == "" {
		return true
	}
	matched, err := el.Matches(selector)
	if err == nil {
		if matched {
			return true
		}
		ancestor, err := el.Closest(selector)
		if err == nil {
			return ancestor != nil
		}
	}

	if strings.Contains(selector, ",") {
		for _, part := range strings.Split(selector, ",") {
			if strings.Contains(target.Href, strings.TrimSpace(part)) {
				return true
			}
		}
		return false
	}
	return strings.Contains(target.Href, selector) || strings.Contains(target.Classes, selector)
}

// handleFormSubmit fires form definitions whose keyword filter matches the
// submitted form title.
func (d *TriggerDispatcher) handleFormSubmit(n host.Notification) {
	submit, ok := n.(host.FormSubmit)
	if !ok {
		return
	}
	title := strings.ToLower(submit.FormTitle)

	for _, def := range d.formEvents {
		d.guard(def.Name, "form_submit", func() {
			if !keywordMatches(title, def.Selector) || !d.conditionsHold(def) {
				return
			}
			formName := submit.FormTitle
			if formName == "" {
				formName = "contact_form"
			}
			payload := d.basePayload()
			payload["form_id"] = submit.FormID
			payload["form_name"] = formName
			d.emitter.Emit(def.Name, payload)
		})
	}
}

func keywordMatches(title, filter string) bool {
	if filter == "" {
		return true
	}
	for _, keyword := range strings.Split(filter, ",") {
		if strings.Contains(title, strings.ToLower(strings.TrimSpace(keyword))) {
			return true
		}
	}
	return false
}

// processConditional fires each conditional definition the first time its
// conditions hold in this browser session. A pageload definition shares its
// pageload storage key with this pass, so it fires once whichever path
// observes the conditions first.
func (d *TriggerDispatcher) processConditional() {
	session := d.host.SessionStorage()
	for _, def := range d.conditional {
		d.guard(def.Name, "conditional", func() {
			key := d.tracker.Prefix() + "_fired_" + def.Name
			if v, _ := read(session, key); v != "" {
				return
			}
			pageLoad := def.EffectiveTrigger() == tracking.TriggerPageLoad
			if pageLoad && d.pageLoadClaimed(def) {
				return
			}
			if !d.conditionsHold(def) {
				return
			}
			d.tracker.write(session, key, "1")
			if pageLoad {
				d.claimPageLoad(def)
			}
			d.emitter.Emit(def.Name, d.basePayload())
		})
	}
}

func (d *TriggerDispatcher) conditionsHold(def tracking.EventDefinition) bool {
	if !def.HasConditions() {
		return true
	}
	return d.evaluator.EvaluateAll(def.Conditions, d.env())
}

func (d *TriggerDispatcher) env() *EvaluationEnv {
	return &EvaluationEnv{
		Context: d.tracker.Snapshot(),
		Host:    d.host,
		Now:     d.host.Now(),
	}
}

func (d *TriggerDispatcher) basePayload() map[string]any {
	return d.tracker.Snapshot().Payload()
}

// guard isolates one definition: a panic while arming or firing it is logged
// and does not reach the other definitions.
func (d *TriggerDispatcher) guard(event, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Event handler panicked", "event", event, "stage", stage, "panic", r)
		}
	}()
	fn()
}

func isVideoTrigger(t tracking.TriggerKind) bool {
	return t == tracking.TriggerPlay || t == tracking.TriggerProgress || t == tracking.TriggerEnded
}
