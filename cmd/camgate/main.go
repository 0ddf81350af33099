// camgate - MQTT camera gateway
//
// camgate enumerates the attached cameras, subscribes to the command topics
// on an MQTT broker and answers each command on the shared response topic.
// Capture streams publish one response per acquired frame until stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/camgate/internal/api"
	"github.com/nerrad567/camgate/internal/camera"
	"github.com/nerrad567/camgate/internal/dispatch"
	"github.com/nerrad567/camgate/internal/gateway"
	"github.com/nerrad567/camgate/internal/infrastructure/config"
	"github.com/nerrad567/camgate/internal/infrastructure/database"
	"github.com/nerrad567/camgate/internal/infrastructure/influxdb"
	"github.com/nerrad567/camgate/internal/infrastructure/logging"
	"github.com/nerrad567/camgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/camgate/internal/inventory"
	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
	"github.com/nerrad567/camgate/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application body, separated from main for testability.
// Deferred closes run in reverse order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting camgate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath, explicit := getConfigPath()
	cfg, err := config.Load(configPath, !explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"gateway_id", cfg.Gateway.ID,
		"codec", cfg.Wire.Codec,
	)

	codec, err := protocol.NewCodec(cfg.Wire.Codec)
	if err != nil {
		return fmt.Errorf("selecting wire codec: %w", err)
	}

	// Inventory database (optional)
	var (
		db  *database.DB
		inv inventory.Repository
	)
	if cfg.Database.Enabled {
		db, inv, err = openInventory(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("inventory database ready", "path", db.Path())
	} else {
		log.Info("inventory database disabled")
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Gateway.ID)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
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

	reg := registry.New(camera.NewSimulatedDriver(camera.SimulatedOptions{
		Count:         cfg.Devices.Simulated.Count,
		Width:         cfg.Devices.Simulated.Width,
		Height:        cfg.Devices.Simulated.Height,
		FrameInterval: cfg.GetFrameInterval(),
	}))
	reg.SetLogger(log.Component("registry"))
	if inv != nil {
		reg.SetObserver(inv)
	}
	defer func() {
		log.Info("closing cameras")
		if closeErr := reg.Close(); closeErr != nil {
			log.Error("error closing cameras", "error", closeErr)
		}
	}()

	n, err := reg.Build(ctx)
	if err != nil {
		// Partial enumeration still serves the cameras that opened.
		log.Warn("camera enumeration incomplete", "cameras", n, "error", err)
	}

	topics := mqtt.NewTopics(cfg.MQTT.Topics)
	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2

	dispatchOpts := dispatch.Options{
		Publisher:  mqttClient,
		Codec:      codec,
		Topic:      topics.Response(),
		QoS:        qos,
		FrameQoS:   byte(cfg.Capture.FrameQoS), // #nosec G115 -- validated to 0..2
		WaitForAck: cfg.Capture.WaitForAck,
		Enumerator: reg,
		Logger:     log.Component("dispatch"),
	}
	gatewayOpts := gateway.Options{
		GatewayID:      cfg.Gateway.ID,
		Version:        version,
		MQTT:           mqttClient,
		Topics:         topics,
		QoS:            qos,
		Codec:          codec,
		Registry:       reg,
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log.Component("gateway"),
	}
	// A nil *influxdb.Client must not end up inside a non-nil interface.
	if influxClient != nil {
		dispatchOpts.Recorder = influxClient
		gatewayOpts.Telemetry = influxClient
	}

	dispatcher, err := dispatch.New(dispatchOpts)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	gatewayOpts.Dispatcher = dispatcher

	gw, err := gateway.New(gatewayOpts)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer func() {
		log.Info("stopping gateway")
		gw.Stop()
	}()
	log.Info("gateway started",
		"instance_id", gw.InstanceID(),
		"command_topic", topics.Command(),
		"init_topic", topics.Init(),
		"response_topic", topics.Response(),
	)

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Status:  gw,
			Cameras: reg,
			Version: version,
		}
		if db != nil {
			deps.Inventory = inv
			deps.DB = db
		}
		srv, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns the configuration file path and whether it was set
// explicitly. Only the default path may be missing.
func getConfigPath() (string, bool) {
	if path := os.Getenv("CAMGATE_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// openInventory opens the SQLite database, applies the embedded migrations
// and returns the inventory repository over it.
func openInventory(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, inventory.Repository, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, inventory.NewSQLiteRepository(db.DB), nil
}
