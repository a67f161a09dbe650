package services

import (
	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/sink"
)

// EngineOptions carries the optional collaborators of a TrackingEngine.
type EngineOptions struct {
	// Accessors is the allow-list for expression conditions. Nil means the
	// built-in accessors only.
	Accessors *AccessorRegistry
	// Sink overrides the HTTP sink built from the bootstrap sink URL.
	Sink   DebugSink
	Logger *logging.ChanneledLogger
}

// TrackingEngine is the entry point mounted once per page view.
type TrackingEngine struct {
	bootstrap *tracking.Bootstrap
	opts      EngineOptions
	logger    *logging.ChanneledLogger
	gate      *ConsentGate

	tracker    *ContextTracker
	emitter    *EventEmitter
	dispatcher *TriggerDispatcher
}

// NewTrackingEngine creates an engine for one page view.
func NewTrackingEngine(bootstrap *tracking.Bootstrap, opts EngineOptions) *TrackingEngine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &TrackingEngine{
		bootstrap: bootstrap,
		opts:      opts,
		logger:    logger,
		gate:      NewConsentGate(),
	}
}

// Start hands the entry routine to the consent gate. It returns false, and
// subscribes to nothing, when there is nothing to track.
func (e *TrackingEngine) Start(h host.Host) bool {
	if e.bootstrap == nil || len(e.bootstrap.Events) == 0 {
		e.logger.Tracking().Debug("Tracking not started: no events configured")
		return false
	}
	e.gate.Start(h, func() { e.run(h) })
	return true
}

// Started reports whether tracking is running.
func (e *TrackingEngine) Started() bool {
	return e.gate.Started()
}

// Tracker returns the context tracker, nil before tracking started.
func (e *TrackingEngine) Tracker() *ContextTracker {
	return e.tracker
}

// Wait blocks until pending debug sink posts finish.
func (e *TrackingEngine) Wait() {
	if e.emitter != nil {
		e.emitter.Wait()
	}
}

func (e *TrackingEngine) run(h host.Host) {
	b := e.bootstrap

	e.tracker = NewContextTracker(h, b.Prefix(), b.UTM, e.logger.Tracking())
	e.tracker.Attach()

	debugSink := e.opts.Sink
	if debugSink == nil && b.Debug && b.SinkURL != "" {
		debugSink = sink.NewHTTPSink(b.SinkURL, nil)
	}
	e.emitter = NewEventEmitter(h, debugSink, b.Debug, b.Token, e.logger.Emitter())

	evaluator := NewConditionEvaluationService(e.opts.Accessors)
	e.dispatcher = NewTriggerDispatcher(h, e.tracker, evaluator, e.emitter, e.logger.Dispatch())
	e.dispatcher.Arm(b.Events)

	e.logger.Tracking().Info("Tracking started", "events", len(b.Events), "debug", b.Debug)
}
