// ga4-events serves tracking bootstraps and the debug event log, and replays
// scripted visits against the tracking engine from the command line.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/anticipaterdotcom/ga4-events/internal/application/replay"
	"github.com/anticipaterdotcom/ga4-events/internal/application/startup"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/definitions"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/database"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/persistence/storage"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
	"github.com/anticipaterdotcom/ga4-events/pkg/config"
)

const usage = `usage: ga4-events <command> [flags]

commands:
  serve          run the HTTP server (default)
  replay         play a scenario file and print data layer records
  hash-password  print a bcrypt hash for ADMIN_PASSWORD_HASH
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(args)
	case "replay":
		return replayScenario(args)
	case "hash-password":
		return hashPassword(args)
	case "help":
		fmt.Print(usage)
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

func serve(args []string) error {
	opts := startup.DefaultOptions()

	flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.Port, "port", "p", opts.Port, "HTTP listen port")
	flagSet.StringVar(&opts.EventsFile, "events", opts.EventsFile, "event definitions file (yaml, json or jsonc)")
	flagSet.StringVar(&opts.DBDriver, "db-driver", opts.DBDriver, "database driver: sqlite3 or libsql")
	flagSet.StringVar(&opts.DBDSN, "db-dsn", opts.DBDSN, "database connection string")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if err := startup.Initialize(opts); err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}
	log.Println("Application has shut down gracefully.")
	return nil
}

func replayScenario(args []string) error {
	var (
		eventsFile   = config.EventsFile
		scenarioFile string
		statePath    string
		visitor      string
		newSession   bool
		verbose      bool
	)
	flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flagSet.StringVar(&eventsFile, "events", eventsFile, "event definitions file")
	flagSet.StringVarP(&scenarioFile, "scenario", "s", "", "scenario file to play (required)")
	flagSet.StringVar(&statePath, "state", "", "sqlite file keeping browser storage between runs")
	flagSet.StringVar(&visitor, "visitor", "default", "visitor whose storage is used with --state")
	flagSet.BoolVar(&newSession, "new-session", false, "start a new browser session before the page loads")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if scenarioFile == "" {
		return fmt.Errorf("--scenario is required")
	}

	settings, err := definitions.LoadFile(eventsFile)
	if err != nil {
		return err
	}
	sc, err := replay.LoadScenario(scenarioFile)
	if err != nil {
		return err
	}

	opts := replay.Options{
		Settings:      settings,
		Visitor:       visitor,
		NewSession:    newSession,
		StoragePrefix: config.StoragePrefix,
		Out:           os.Stdout,
	}
	if verbose {
		logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
			OutputToConsole: true,
			Output:          os.Stderr,
			DefaultLevel:    slog.LevelDebug,
		})
		if err != nil {
			return err
		}
		opts.Logger = logger
	}
	if statePath != "" {
		db, err := database.NewConnection("sqlite3", statePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			return err
		}
		opts.State = storage.NewSQLStorageRepository(db)
	}

	res, err := replay.Run(sc, opts)
	if err != nil {
		return err
	}
	if !res.Started {
		fmt.Fprintln(os.Stderr, "tracking did not start")
	}
	return nil
}

func hashPassword(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ga4-events hash-password <password>")
	}
	hash, err := security.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
