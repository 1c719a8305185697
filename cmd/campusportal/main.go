// Campus Portal - authentication core and resource API for a university portal.
//
// This is the main entry point. It loads configuration, opens the credential
// and resource store, connects the optional announcement bus, telemetry sink
// and shared rate limiter, then serves the HTTP API until interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/nerrad567/campus-portal/migrations"

	"github.com/nerrad567/campus-portal/internal/api"
	"github.com/nerrad567/campus-portal/internal/audit"
	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/event"
	"github.com/nerrad567/campus-portal/internal/forum"
	"github.com/nerrad567/campus-portal/internal/infrastructure/config"
	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
	"github.com/nerrad567/campus-portal/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-portal/internal/infrastructure/logging"
	"github.com/nerrad567/campus-portal/internal/infrastructure/mqtt"
	"github.com/nerrad567/campus-portal/internal/infrastructure/ratelimit"
	"github.com/nerrad567/campus-portal/internal/material"
	"github.com/nerrad567/campus-portal/internal/notice"
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

// seedOutput receives the first-boot admin password, outside the log stream.
var seedOutput io.Writer = os.Stderr

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// Deferred closes run in reverse order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Campus Portal",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"portal", cfg.Portal.ID,
		"level", cfg.Logging.Level,
	)

	db, err := database.Open(database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		WALMode:      cfg.Database.WALMode,
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       log.Logger,
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
	log.Info("database connected", "driver", db.Driver())

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Auth core
	issuer, err := auth.NewTokenIssuer(cfg.Security.JWT.Secret, cfg.GetTokenTTL())
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	users := auth.NewUserRepository(db)
	authSvc := auth.NewService(users, issuer, auth.ServiceOptions{
		RegisterRoles: registerRoles(cfg.Security.Registration.AllowedRoles),
		LookupTimeout: cfg.GetUserLookupTimeout(),
	})

	seedPassword, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.SeedAdmin.Email, cfg.Security.SeedAdmin.Name, log.Logger)
	if seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}
	if seedPassword != "" {
		fmt.Fprintf(seedOutput, "seed admin %s one-time password: %s\n", cfg.Security.SeedAdmin.Email, seedPassword)
	}

	deps := api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		RateLimit: cfg.Security.RateLimit,
		Logger:    log,
		DB:        db,
		Auth:      authSvc,
		Users:     users,
		Materials: material.NewRepository(db),
		Events:    event.NewRepository(db),
		Notices:   notice.NewRepository(db),
		Forum:     forum.NewRepository(db),
		AuditRepo: audit.NewRepository(db),
		Version:   version,
	}

	// Announcement bus (optional). A broker outage degrades to no announcements.
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, announcements disabled", "error", mqttErr)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
			mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"prefix", mqttClient.Topics().Prefix(),
			)
			deps.Announcer = mqttClient
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Auth telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, auth telemetry disabled", "error", influxErr)
		} else {
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
			deps.Telemetry = influxClient
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Security.RateLimit.Enabled {
		limiter, limErr := newLimiter(ctx, cfg, log)
		if limErr != nil {
			return fmt.Errorf("creating rate limiter: %w", limErr)
		}
		defer func() {
			if closeErr := limiter.Close(); closeErr != nil {
				log.Error("error closing rate limiter", "error", closeErr)
			}
		}()
		deps.Limiter = limiter
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

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns CAMPUS_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("CAMPUS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// registerRoles converts configured role names. Config validation has
// already rejected unknown names.
func registerRoles(names []string) []auth.Role {
	roles := make([]auth.Role, 0, len(names))
	for _, n := range names {
		if r, err := auth.ParseRole(n); err == nil {
			roles = append(roles, r)
		}
	}
	return roles
}

// newLimiter builds the configured rate limiter backend.
func newLimiter(ctx context.Context, cfg *config.Config, log *logging.Logger) (ratelimit.Limiter, error) {
	switch strings.ToLower(cfg.Security.RateLimit.Backend) {
	case config.RateLimitBackendRedis:
		r, err := ratelimit.NewRedis(ctx, ratelimit.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("rate limiter using redis", "addr", cfg.Redis.Addr)
		return r, nil
	default:
		log.Info("rate limiter using memory")
		return ratelimit.NewMemory(), nil
	}
}
