package services

import (
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
)

// BootstrapConfig holds the values the bootstrap document is built from.
type BootstrapConfig struct {
	SinkURL       string
	StoragePrefix string
	JWTSecret     string
	TokenTTL      time.Duration
}

// BootstrapService builds the initialization input for one page view.
type BootstrapService struct {
	settings    SettingsSource
	attribution *AttributionService
	cfg         BootstrapConfig
	logger      *logging.ChanneledLogger
}

func NewBootstrapService(settings SettingsSource, attribution *AttributionService, cfg BootstrapConfig, logger *logging.ChanneledLogger) *BootstrapService {
	return &BootstrapService{settings: settings, attribution: attribution, cfg: cfg, logger: logger}
}

// Build returns the bootstrap for a page view in sessionID. Disabled
// settings produce an empty event list, which leaves the engine inert.
func (s *BootstrapService) Build(sessionID, pageURL string) *tracking.Bootstrap {
	settings := s.settings.Settings()
	b := &tracking.Bootstrap{
		Events:        []tracking.EventDefinition{},
		StoragePrefix: s.cfg.StoragePrefix,
	}
	if !settings.Enabled {
		return b
	}

	b.Events = settings.EnabledEvents()
	b.Debug = bool(settings.DebugMode)
	b.UTM = s.attribution.Resolve(sessionID, pageURL)

	if b.Debug {
		b.SinkURL = s.cfg.SinkURL
		token, err := security.IssueLogToken(s.cfg.JWTSecret, s.cfg.TokenTTL)
		if err != nil {
			// the page still tracks, it just cannot post debug copies
			s.logger.Auth().Warn("Failed to issue log token", "error", err.Error())
		}
		b.Token = token
	}
	return b
}
