// Package messaging defines interfaces for real-time communication.
package messaging

import (
	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

// Publisher fans debug log entries out to live viewers.
type Publisher interface {
	Publish(entry *tracking.LogEntry)
}
