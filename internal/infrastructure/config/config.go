package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// minJWTSecretLength is the shortest signing secret accepted at startup.
const minJWTSecretLength = 32

// knownRoles mirrors the role names understood by the auth package.
var knownRoles = map[string]bool{"STUDENT": true, "FACULTY": true, "ADMIN": true}

// Config is the root configuration structure for the campus portal.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Portal    PortalConfig    `yaml:"portal"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// PortalConfig identifies this portal deployment.
type PortalConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig selects and tunes the credential and resource store.
//
// Driver "sqlite" uses Path; driver "postgres" uses DSN.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"`
	DSN          string `yaml:"dsn"`
	WALMode      bool   `yaml:"wal_mode"`
	BusyTimeout  int    `yaml:"busy_timeout"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// MQTTConfig contains announcement broker settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains live feed settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains auth telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// RedisConfig contains the shared rate limiter store settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains authentication and authorisation settings.
type SecurityConfig struct {
	JWT          JWTConfig          `yaml:"jwt"`
	Registration RegistrationConfig `yaml:"registration"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	SeedAdmin    SeedAdminConfig    `yaml:"seed_admin"`

	// UserLookupTimeout bounds the per-request credential store lookup (milliseconds).
	UserLookupTimeout int `yaml:"user_lookup_timeout"`
}

// JWTConfig contains bearer token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// TokenTTL is the token validity window in hours.
	TokenTTL int `yaml:"token_ttl"`
}

// RegistrationConfig controls self-service sign-up.
type RegistrationConfig struct {
	AllowedRoles []string `yaml:"allowed_roles"`
}

// RateLimitConfig contains limits for the public auth endpoints.
type RateLimitConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Backend               string `yaml:"backend"`
	AuthRequestsPerMinute int    `yaml:"auth_requests_per_minute"`
}

// SeedAdminConfig names the administrator created on an empty store.
type SeedAdminConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CAMPUS_SECTION_KEY
// For example: CAMPUS_DATABASE_PATH, CAMPUS_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			ID:   "campus-001",
			Name: "Campus Portal",
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			Path:         "./data/campusportal.db",
			WALMode:      true,
			BusyTimeout:  5,
			MaxOpenConns: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "campusportal",
			},
			QoS:         1,
			TopicPrefix: "campus",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 7 * 24,
			},
			Registration: RegistrationConfig{
				AllowedRoles: []string{"STUDENT", "FACULTY", "ADMIN"},
			},
			RateLimit: RateLimitConfig{
				Enabled:               true,
				Backend:               RateLimitBackendMemory,
				AuthRequestsPerMinute: 20,
			},
			UserLookupTimeout: 2000,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CAMPUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CAMPUS_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CAMPUS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CAMPUS_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// MQTT
	if v := os.Getenv("CAMPUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CAMPUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CAMPUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CAMPUS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CAMPUS_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("CAMPUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Redis
	if v := os.Getenv("CAMPUS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CAMPUS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Security
	if v := os.Getenv("CAMPUS_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("CAMPUS_SEED_ADMIN_EMAIL"); v != "" {
		cfg.Security.SeedAdmin.Email = v
	}
}

// Validate checks the configuration for errors and security issues.
// Every problem found is reported, not just the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Portal.ID == "" {
		errs = append(errs, "portal.id is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for the postgres driver (set CAMPUS_DATABASE_DSN)")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use sqlite or postgres)", c.Database.Driver))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Forged tokens grant any role, so a missing or weak secret is fatal.
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set CAMPUS_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if c.Security.JWT.TokenTTL <= 0 {
		errs = append(errs, "security.jwt.token_ttl must be a positive number of hours")
	}

	if c.Security.UserLookupTimeout < 0 {
		errs = append(errs, "security.user_lookup_timeout must not be negative")
	}

	for _, r := range c.Security.Registration.AllowedRoles {
		if !knownRoles[strings.ToUpper(r)] {
			errs = append(errs, fmt.Sprintf("security.registration.allowed_roles: unknown role %q", r))
		}
	}

	if c.Security.RateLimit.Enabled {
		switch c.Security.RateLimit.Backend {
		case RateLimitBackendMemory:
		case RateLimitBackendRedis:
			if !c.Redis.Enabled || c.Redis.Addr == "" {
				errs = append(errs, "security.rate_limit.backend redis requires redis.enabled and redis.addr")
			}
		default:
			errs = append(errs, fmt.Sprintf("security.rate_limit.backend %q is not supported", c.Security.RateLimit.Backend))
		}
		if c.Security.RateLimit.AuthRequestsPerMinute < 1 {
			errs = append(errs, "security.rate_limit.auth_requests_per_minute must be at least 1")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the bearer token validity window.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.TokenTTL) * time.Hour
}

// GetUserLookupTimeout returns the per-request user lookup bound.
// Zero means no bound beyond the request context.
func (c *Config) GetUserLookupTimeout() time.Duration {
	return time.Duration(c.Security.UserLookupTimeout) * time.Millisecond
}
