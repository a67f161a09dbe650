// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/anticipaterdotcom/ga4-events/internal/application/services"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/caching/stores"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/definitions"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/messaging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/performance"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/eventlog"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/ratelimit"
	"github.com/anticipaterdotcom/ga4-events/pkg/config"
)

// Options overrides the configuration defaults the container is built from.
type Options struct {
	JWTSecret         string
	AdminPasswordHash string
	SinkURL           string
	StoragePrefix     string
}

// DefaultOptions reads the options from pkg/config.
func DefaultOptions() Options {
	sinkURL := config.PublicBaseURL + "/api/v1/tracking/log"
	return Options{
		JWTSecret:         config.JWTSecret,
		AdminPasswordHash: config.AdminPasswordHash,
		SinkURL:           sinkURL,
		StoragePrefix:     config.StoragePrefix,
	}
}

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	AuthService      *services.AuthService
	DebugLogService  *services.DebugLogService
	BootstrapService *services.BootstrapService

	// Infrastructure Dependencies
	Logger           *logging.ChanneledLogger
	PerfTracker      *performance.Tracker
	DB               *database.DB
	Definitions      *definitions.Store
	EventLogRepo     *eventlog.SQLEventLogRepository
	Broadcaster      *messaging.EventLogBroadcaster
	AttributionStore *stores.AttributionStore
	SinkLimiter      *ratelimit.IPLimiter
	LoginLimiter     *ratelimit.IPLimiter
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger, db *database.DB, defs *definitions.Store, opts Options) *Container {
	eventLogRepo := eventlog.NewSQLEventLogRepository(db, logger)
	broadcaster := messaging.NewEventLogBroadcaster(logger)
	attributionStore := stores.NewAttributionStore(config.AttributionTTL, logger)
	sinkLimiter := ratelimit.NewIPLimiter(config.LogRateLimitPerMinute)
	loginLimiter := ratelimit.NewIPLimiter(10)

	attribution := services.NewAttributionService(attributionStore)

	return &Container{
		AuthService: services.NewAuthService(opts.AdminPasswordHash, opts.JWTSecret, config.AdminTokenTTL, logger),
		DebugLogService: services.NewDebugLogService(
			eventLogRepo,
			defs,
			sinkLimiter,
			broadcaster,
			opts.JWTSecret,
			logger,
		),
		BootstrapService: services.NewBootstrapService(defs, attribution, services.BootstrapConfig{
			SinkURL:       opts.SinkURL,
			StoragePrefix: opts.StoragePrefix,
			JWTSecret:     opts.JWTSecret,
			TokenTTL:      config.LogTokenTTL,
		}, logger),

		Logger:           logger,
		PerfTracker:      performance.NewTracker(config.SlowRequestThreshold, logger),
		DB:               db,
		Definitions:      defs,
		EventLogRepo:     eventLogRepo,
		Broadcaster:      broadcaster,
		AttributionStore: attributionStore,
		SinkLimiter:      sinkLimiter,
		LoginLimiter:     loginLimiter,
	}
}
