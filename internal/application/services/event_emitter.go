package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/host"
)

const sinkPostTimeout = 10 * time.Second

// DebugSink receives a copy of every emitted event while debug mode is on.
type DebugSink interface {
	Send(ctx context.Context, record tracking.SinkRecord) error
}

// EventEmitter publishes fired events onto the analytics queue.
type EventEmitter struct {
	host   host.Host
	sink   DebugSink
	debug  bool
	token  string
	logger *slog.Logger
	posts  sync.WaitGroup
}

// NewEventEmitter creates an emitter. The sink is only used when debug is set.
func NewEventEmitter(h host.Host, sink DebugSink, debug bool, token string, logger *slog.Logger) *EventEmitter {
	return &EventEmitter{
		host:   h,
		sink:   sink,
		debug:  debug,
		token:  token,
		logger: logger,
	}
}

// Emit pushes {event: name, ...payload} onto the queue. In debug mode the
// payload is also posted to the sink in the background; the outcome of that
// post never reaches the caller.
func (e *EventEmitter) Emit(name string, payload map[string]any) {
	record := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		record[k] = v
	}
	record["event"] = name

	if q := e.host.Queue(); q != nil {
		q.Push(record)
	}
	e.logger.Debug("Event emitted", "event", name)

	if !e.debug || e.sink == nil {
		return
	}

	data := make(map[string]any, len(payload))
	for k, v := range payload {
		if k != "event" {
			data[k] = v
		}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		e.logger.Debug("Debug payload encoding failed", "event", name, "error", err.Error())
		return
	}

	var pageURL string
	if loc := e.host.Location(); loc != nil {
		pageURL = loc.String()
	}
	sinkRecord := tracking.SinkRecord{
		EventName: name,
		EventData: string(encoded),
		PageURL:   pageURL,
		Token:     e.token,
	}

	e.posts.Add(1)
	go func() {
		defer e.posts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sinkPostTimeout)
		defer cancel()
		if err := e.sink.Send(ctx, sinkRecord); err != nil {
			e.logger.Debug("Debug sink post failed", "event", name, "error", err.Error())
		}
	}()
}

// Wait blocks until every background sink post has finished.
func (e *EventEmitter) Wait() {
	e.posts.Wait()
}
