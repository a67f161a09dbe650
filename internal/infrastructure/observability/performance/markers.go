// Package performance times request handling and keeps per-operation
// aggregates for the admin metrics endpoint.
package performance

import "time"

// Marker is a single measurement of one operation.
type Marker struct {
	Operation string        `json:"operation"` // e.g. "post_event_log_request"
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Completed bool          `json:"completed"`

	tracker *Tracker
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.Success = success
}

// SetError records err and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// Complete stops the clock and folds the marker into the tracker totals.
// Completing twice is a no-op.
func (m *Marker) Complete() {
	if m.Completed {
		return
	}
	m.Completed = true
	m.Duration = m.tracker.now().Sub(m.StartTime)
	m.tracker.record(m)
}

// OperationStats aggregates every completed marker of one operation.
type OperationStats struct {
	Count         int64         `json:"count"`
	Failures      int64         `json:"failures"`
	TotalDuration time.Duration `json:"totalDuration"`
	MaxDuration   time.Duration `json:"maxDuration"`
	SlowCount     int64         `json:"slowCount"`
	LastError     string        `json:"lastError,omitempty"`
}

// AverageDuration is the mean duration, zero before the first marker.
func (s OperationStats) AverageDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// Snapshot is the tracker state handed to callers.
type Snapshot struct {
	Uptime     time.Duration             `json:"uptime"`
	Operations map[string]OperationStats `json:"operations"`
}
