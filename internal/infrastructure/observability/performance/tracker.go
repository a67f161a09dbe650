package performance

import (
	"sync"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
)

// Tracker aggregates markers by operation name.
type Tracker struct {
	mu            sync.RWMutex
	operations    map[string]*OperationStats
	slowThreshold time.Duration
	started       time.Time
	logger        *logging.ChanneledLogger
	now           func() time.Time
}

// NewTracker creates a tracker. Operations slower than slowThreshold are
// counted and logged; zero disables the check.
func NewTracker(slowThreshold time.Duration, logger *logging.ChanneledLogger) *Tracker {
	return &Tracker{
		operations:    make(map[string]*OperationStats),
		slowThreshold: slowThreshold,
		started:       time.Now(),
		logger:        logger,
		now:           time.Now,
	}
}

// StartOperation starts timing operation. The marker assumes success until
// an error is recorded on it.
func (t *Tracker) StartOperation(operation string) *Marker {
	return &Marker{
		Operation: operation,
		StartTime: t.now(),
		Success:   true,
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	slow := t.slowThreshold > 0 && m.Duration > t.slowThreshold

	t.mu.Lock()
	stats, ok := t.operations[m.Operation]
	if !ok {
		stats = &OperationStats{}
		t.operations[m.Operation] = stats
	}
	stats.Count++
	stats.TotalDuration += m.Duration
	if m.Duration > stats.MaxDuration {
		stats.MaxDuration = m.Duration
	}
	if !m.Success {
		stats.Failures++
		stats.LastError = m.Error
	}
	if slow {
		stats.SlowCount++
	}
	t.mu.Unlock()

	if slow && t.logger != nil {
		t.logger.System().Warn("Slow operation", "operation", m.Operation, "duration", m.Duration)
	}
}

// Stats returns the aggregate of one operation.
func (t *Tracker) Stats(operation string) (OperationStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats, ok := t.operations[operation]
	if !ok {
		return OperationStats{}, false
	}
	return *stats, true
}

// Snapshot copies every aggregate.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Snapshot{
		Uptime:     t.now().Sub(t.started),
		Operations: make(map[string]OperationStats, len(t.operations)),
	}
	for name, stats := range t.operations {
		out.Operations[name] = *stats
	}
	return out
}

// Reset drops every aggregate.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.operations = make(map[string]*OperationStats)
	t.mu.Unlock()
}
