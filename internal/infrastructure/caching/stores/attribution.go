// Package stores provides the in-memory stores backing visitor sessions.
package stores

import (
	"sync"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
)

type attributionEntry struct {
	utm          tracking.Attribution
	lastActivity time.Time
}

// AttributionStore keeps the UTM attribution seen during each visitor
// session. Entries expire after ttl without activity.
type AttributionStore struct {
	sessions map[string]*attributionEntry
	ttl      time.Duration
	now      func() time.Time
	logger   *logging.ChanneledLogger
	mu       sync.RWMutex
}

// NewAttributionStore creates an empty store.
func NewAttributionStore(ttl time.Duration, logger *logging.ChanneledLogger) *AttributionStore {
	return &AttributionStore{
		sessions: make(map[string]*attributionEntry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Merge records the non-empty values of params for the session and returns
// the session's attribution. Values seen earlier survive until replaced.
func (s *AttributionStore) Merge(sessionID string, params map[string]string) tracking.Attribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.sessions[sessionID]
	if !ok || now.Sub(entry.lastActivity) > s.ttl {
		entry = &attributionEntry{}
		s.sessions[sessionID] = entry
	}
	entry.lastActivity = now

	for _, name := range tracking.UTMParams {
		if v := params[name]; v != "" {
			value := v
			*entry.utm.Field(name) = &value
		}
	}
	return entry.utm
}

// Get returns the live attribution for a session.
func (s *AttributionStore) Get(sessionID string) (tracking.Attribution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok || s.now().Sub(entry.lastActivity) > s.ttl {
		return tracking.Attribution{}, false
	}
	return entry.utm, true
}

// PurgeExpired removes idle sessions and returns how many were dropped.
func (s *AttributionStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.lastActivity) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 && s.logger != nil {
		s.logger.Tracking().Debug("Expired attribution sessions removed", "count", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (s *AttributionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
