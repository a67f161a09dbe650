package services

import (
	"net/url"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
)

// AttributionStore persists UTM values per visitor session.
type AttributionStore interface {
	Merge(sessionID string, params map[string]string) tracking.Attribution
}

// AttributionService extracts UTM parameters from page URLs and keeps
// them for the rest of the visitor session.
type AttributionService struct {
	store AttributionStore
}

func NewAttributionService(store AttributionStore) *AttributionService {
	return &AttributionService{store: store}
}

// Resolve records the utm_* parameters present on pageURL and returns
// everything seen during the session. An unparsable URL only reads.
func (s *AttributionService) Resolve(sessionID, pageURL string) tracking.Attribution {
	params := make(map[string]string, len(tracking.UTMParams))
	if u, err := url.Parse(pageURL); err == nil {
		query := u.Query()
		for _, name := range tracking.UTMParams {
			if v := sanitizeText(query.Get(name)); v != "" {
				params[name] = v
			}
		}
	}
	return s.store.Merge(sessionID, params)
}
