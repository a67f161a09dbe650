// Package repositories defines the persistence interfaces the tracking
// services depend on.
package repositories

import (
	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

type EventLogRepository interface {
	Store(entry *tracking.LogEntry) error
	List(filter tracking.LogFilter) ([]*tracking.LogEntry, error)
	Clear() (int64, error)
}

// StorageRepository persists browser storage areas keyed by scope.
type StorageRepository interface {
	Get(scope, key string) (string, bool, error)
	Set(scope, key, value string) error
	Remove(scope, key string) error
	Clear(scope string) error
}
