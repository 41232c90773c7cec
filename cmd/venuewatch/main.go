// VenueWatch Core ingests telemetry from environmental sensors deployed in
// venues and serves per-venue alert summaries.
//
// Devices connect over a websocket (or publish to MQTT) and report
// temperature, humidity and, depending on their model, odour, air quality
// or gas readings together with alert tokens. The latest state of every
// device is kept in SQLite; dashboards read alert summaries over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/alerts"
	"github.com/nerrad567/venuewatch-core/internal/api"
	"github.com/nerrad567/venuewatch-core/internal/audit"
	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/database"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/venuewatch-core/internal/ingest"
	"github.com/nerrad567/venuewatch-core/internal/location"
	"github.com/nerrad567/venuewatch-core/internal/telemetry"
	"github.com/nerrad567/venuewatch-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often expired telemetry history is deleted.
const historyPruneInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath  string
	showVersion bool
}

// parseFlags reads args. The config path falls back to VENUEWATCH_CONFIG
// and then to the default path.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("venuewatch", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// getConfigPath returns the configuration file path.
// Uses VENUEWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VENUEWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("venuewatch %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting VenueWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	// Database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	locations := location.NewSQLiteRepository(db.DB)
	if seedErr := locations.Seed(ctx, cfg.Seed, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding locations: %w", seedErr)
	}

	// Device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	historyRepo := device.NewSQLiteHistoryRepository(db.DB)
	registry := device.NewRegistry(deviceRepo, locations)
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.CachedCount())

	// Optional MQTT
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Optional InfluxDB
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection", "failed_batches", influxClient.FailedWrites())
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err, "failed_batches", influxClient.FailedWrites())
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Telemetry pipeline
	sinks := []telemetry.Sink{telemetry.NewHistorySink(historyRepo)}
	if influxClient != nil {
		sinks = append(sinks, telemetry.NewPointSink(influxClient))
	}
	if mqttClient != nil && cfg.MQTT.PublishState {
		sinks = append(sinks, telemetry.NewPublishSink(mqttClient))
	}
	applier := telemetry.NewApplier(deviceRepo, sinks...)
	applier.SetLogger(log)
	processor := telemetry.NewProcessor(registry, applier, cfg.Location())
	processor.SetLogger(log)

	// Ingestion
	hub := ingest.NewHub()
	hub.SetLogger(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()
	defer func() {
		log.Info("closing device sessions", "sessions", hub.Count())
		stopHub()
		<-hubDone
	}()

	ingestHandler := ingest.NewHandler(hub, processor, ingest.OptionsFromConfig(cfg.Ingest))
	ingestHandler.SetLogger(log)

	if mqttClient != nil && cfg.MQTT.IngestTelemetry {
		bridge := ingest.NewBridge(mqttClient, processor, byte(cfg.MQTT.QoS), cfg.Ingest.ApplyTimeoutDuration())
		bridge.SetLogger(log)
		if startErr := bridge.Start(hubCtx); startErr != nil {
			return fmt.Errorf("starting MQTT telemetry bridge: %w", startErr)
		}
		log.Info("MQTT telemetry ingestion enabled", "topic", mqtt.TelemetryFilter)
	}

	// HTTP API
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	server, err := api.New(api.Deps{
		Config:       cfg.API,
		Security:     cfg.Security,
		Logger:       log,
		Registry:     registry,
		History:      historyRepo,
		Locations:    locations,
		Alerts:       alerts.NewAggregator(locations, deviceRepo),
		Audit:        audit.NewSQLiteRepository(db.DB),
		Ingest:       ingestHandler,
		IngestPath:   cfg.Ingest.Path,
		Sessions:     hub,
		HealthChecks: checks,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// History retention
	if retention := cfg.Database.HistoryRetentionDuration(); retention > 0 {
		go pruneHistoryLoop(ctx, historyRepo, retention, log)
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"ingest_path", cfg.Ingest.Path,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, device sessions,
	// InfluxDB, MQTT, database, log output.

	log.Info("VenueWatch Core stopped")
	return nil
}

// healthCheck verifies every registered dependency.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, check := range checks {
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// historyPruner is the part of the history repository the pruner needs.
type historyPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneHistoryLoop deletes expired history once at startup and then every
// historyPruneInterval until ctx is cancelled.
func pruneHistoryLoop(ctx context.Context, repo historyPruner, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		pruneHistory(ctx, repo, retention, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneHistory(ctx context.Context, repo historyPruner, retention time.Duration, log *logging.Logger) {
	n, err := repo.Prune(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("pruning telemetry history", "error", err)
		}
		return
	}
	if n > 0 {
		log.Info("pruned telemetry history", "deleted", n, "retention", retention.String())
	}
}
