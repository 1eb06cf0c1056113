// Fingerprint Core - Biometric Capture Service
//
// This is the main entry point for the fingerprint capture service.
// It exposes one attached fingerprint reader over an HTTP API, persists
// capture history to SQLite, and optionally announces captures over
// MQTT and InfluxDB telemetry.
//
// The reader is optional at startup: if device initialization fails the
// service comes up in degraded mode so the read-only history endpoints
// keep working without hardware.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/fingerprint-core/migrations"

	"github.com/nerrad567/fingerprint-core/internal/api"
	"github.com/nerrad567/fingerprint-core/internal/capture"
	"github.com/nerrad567/fingerprint-core/internal/device"
	"github.com/nerrad567/fingerprint-core/internal/device/sim"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/config"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/database"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/logging"
	"github.com/nerrad567/fingerprint-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Fingerprint Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := capture.NewRepository(db)

	// Open the reader session. Initialization failure is not fatal: the
	// service comes up degraded so history endpoints stay available.
	session := openDeviceSession(cfg, log)
	if session != nil {
		defer func() {
			log.Info("closing device session")
			if closeErr := session.Close(); closeErr != nil {
				log.Error("error closing device session", "error", closeErr)
			}
		}()
	}

	// Connect to MQTT broker (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Announce the reader's connection state on the optional status
	// surfaces, and mark it disconnected again on shutdown. In degraded
	// mode no reader identity is known, so there is nothing to announce.
	if session != nil {
		serial := session.Serial()
		announceDeviceStatus(log, mqttClient, influxClient, serial, true)
		defer announceDeviceStatus(log, mqttClient, influxClient, serial, false)
	}

	// Build the capture service when a reader is available.
	var captures *capture.Service
	if session != nil {
		opts := []capture.Option{}
		if mqttClient != nil {
			opts = append(opts, capture.WithPublisher(
				mqtt.NewCapturePublisher(mqttClient, byte(cfg.MQTT.QoS)),
			))
		}
		if influxClient != nil {
			opts = append(opts, capture.WithTelemetry(influxClient))
		}
		captures = capture.NewService(session, repo, log, cfg.Image.Format, opts...)
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Device:   cfg.Device,
		Logger:   log,
		Session:  session,
		Captures: captures,
		Store:    repo,
		DB:       db,
		MQTT:     mqttClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify infrastructure is healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Device status offline announcement (if reader opened)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Device session (if opened)
	// 6. Database

	log.Info("Fingerprint Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FINGERPRINT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FINGERPRINT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDeviceSession resolves the configured driver and initializes the
// reader. Any failure logs a warning and returns nil: the service then
// runs in degraded mode where device endpoints answer 503.
func openDeviceSession(cfg *config.Config, log *logging.Logger) *device.Session {
	sdk, err := resolveDriver(cfg.Device.Driver)
	if err != nil {
		log.Warn("device driver unavailable, starting degraded",
			"driver", cfg.Device.Driver,
			"error", err,
		)
		return nil
	}

	session := device.NewSession(sdk, log, cfg.Device.GetCaptureTimeout())
	if err := session.Initialize(cfg.Device.Index); err != nil {
		log.Warn("device initialization failed, starting degraded",
			"driver", cfg.Device.Driver,
			"index", cfg.Device.Index,
			"error", err,
		)
		_ = session.Close()
		return nil
	}

	status := session.Status()
	log.Info("device ready",
		"serial", status.Serial,
		"image_width", status.ImageWidth,
		"image_height", status.ImageHeight,
	)
	return session
}

// resolveDriver maps a driver name from config to an SDK implementation.
// Hardware drivers bind through cgo and are registered per build; the
// simulated reader is always available.
func resolveDriver(name string) (device.SDK, error) {
	switch name {
	case "sim":
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unknown device driver %q", name)
	}
}

// announceDeviceStatus reports a reader state transition to the optional
// MQTT and InfluxDB status surfaces. Failures are logged, never fatal.
func announceDeviceStatus(log *logging.Logger, mqttClient *mqtt.Client, influxClient *influxdb.Client, serial string, connected bool) {
	if mqttClient != nil {
		if err := mqttClient.PublishDeviceStatus(serial, connected); err != nil {
			log.Warn("publishing device status failed",
				"serial", serial,
				"connected", connected,
				"error", err,
			)
		}
	}
	if influxClient != nil {
		influxClient.WriteDeviceStatus(serial, connected)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional collaborators that are disabled pass vacuously.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
