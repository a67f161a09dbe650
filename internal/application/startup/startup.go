// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/application/container"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/caching/cleanup"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/definitions"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
	"github.com/anticipaterdotcom/ga4-events/internal/presentation/http/server"
	"github.com/anticipaterdotcom/ga4-events/pkg/config"
	"github.com/gin-gonic/gin"
)

// Options overrides configuration values from the command line.
type Options struct {
	Port       string
	EventsFile string
	DBDriver   string
	DBDSN      string
}

// DefaultOptions reads the options from pkg/config.
func DefaultOptions() Options {
	return Options{
		Port:       config.Port,
		EventsFile: config.EventsFile,
		DBDriver:   config.DBDriver,
		DBDSN:      config.DBDSN,
	}
}

// NewLogger builds the channeled logger from pkg/config.
func NewLogger() (*logging.ChanneledLogger, error) {
	return logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    config.LogToFile,
		OutputToConsole: true,
		LogDirectory:    config.LogDirectory,
		JSONFormat:      config.LogJSON,
		DefaultLevel:    logging.ParseLevel(config.LogLevel),
	})
}

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives.
func Initialize(opts Options) error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Logging
	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Starting ga4-events", "port", opts.Port, "eventsFile", opts.EventsFile)

	// Step 2: Database
	phaseStart := time.Now()
	db, err := database.NewConnectionWithLogger(opts.DBDriver, opts.DBDSN, logger)
	if err != nil {
		logger.LogStartupPhase("database", time.Since(phaseStart), false)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		logger.LogStartupPhase("database", time.Since(phaseStart), false)
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.LogStartupPhase("database", time.Since(phaseStart), true)

	// Step 3: Event definitions
	phaseStart = time.Now()
	defs, err := definitions.NewStore(opts.EventsFile, logger)
	if err != nil {
		logger.LogStartupPhase("definitions", time.Since(phaseStart), false)
		return fmt.Errorf("failed to load event definitions: %w", err)
	}
	logger.LogStartupPhase("definitions", time.Since(phaseStart), true)

	containerOpts := container.DefaultOptions()
	if err := ensureJWTSecret(&containerOpts, logger); err != nil {
		return err
	}

	// Step 4: Create dependency injection container
	appContainer := container.NewContainer(logger, db, defs, containerOpts)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 5: Start background workers
	go appContainer.Broadcaster.Run(ctx)
	go cleanup.NewWorker("attribution", appContainer.AttributionStore, config.AttributionCleanupInterval, logger).Start(ctx)
	go cleanup.NewWorker("sink-limiter", appContainer.SinkLimiter, time.Minute, logger).Start(ctx)
	go cleanup.NewWorker("login-limiter", appContainer.LoginLimiter, time.Minute, logger).Start(ctx)
	logger.Startup().Info("Background workers started")

	// Step 6: Start HTTP server
	httpServer := server.New(opts.Port, appContainer)

	// Step 7: Setup graceful shutdown and definition reloads
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"address", httpServer.Addr())

	for running := true; running; {
		select {
		case <-reload:
			if err := defs.Reload(); err != nil {
				logger.Tracking().Error("Definition reload failed", "error", err.Error())
			}
		case err := <-serverErr:
			if err != nil {
				logger.System().Error("HTTP server failed", "error", err.Error())
				return err
			}
			running = false
		case <-gracefulShutdown:
			logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
			running = false
		}
	}

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// ensureJWTSecret fills an empty signing secret with a random one. Tokens
// signed with it stop validating when the process restarts.
func ensureJWTSecret(opts *container.Options, logger *logging.ChanneledLogger) error {
	if opts.JWTSecret != "" {
		return nil
	}
	secret, err := security.GenerateSecureKey(64)
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	opts.JWTSecret = secret
	logger.Startup().Warn("JWT_SECRET is not set; using an ephemeral secret, issued tokens expire on restart")
	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if config.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
