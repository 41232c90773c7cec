package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host tz database

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for VenueWatch Core.
// Values come from defaults, then the YAML file, then environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Ingest   IngestConfig   `yaml:"ingest"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServiceConfig identifies this deployment.
type ServiceConfig struct {
	Name string `yaml:"name"`

	// Timezone is used to stamp lastUpdateTime on accepted telemetry.
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention is how long telemetry history rows are kept, in days.
	// Zero disables pruning.
	HistoryRetention int `yaml:"history_retention"`
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

// IngestConfig controls the device telemetry websocket endpoint.
type IngestConfig struct {
	Path string `yaml:"path"`

	// Greeting is sent once, GreetingDelay milliseconds after a device connects.
	Greeting      string `yaml:"greeting"`
	GreetingDelay int    `yaml:"greeting_delay_ms"`

	MaxMessageSize   int `yaml:"max_message_size"`
	MaxPendingFrames int `yaml:"max_pending_frames"`

	// WriteTimeout bounds the greeting write, in seconds.
	WriteTimeout int `yaml:"write_timeout"`

	// ApplyTimeout bounds a single store update, in seconds.
	ApplyTimeout int `yaml:"apply_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled bool `yaml:"enabled"`

	// IngestTelemetry subscribes to device telemetry topics.
	IngestTelemetry bool `yaml:"ingest_telemetry"`

	// PublishState publishes accepted state updates (retained).
	PublishState bool `yaml:"publish_state"`

	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains rotating log file settings.
// MaxSize is in megabytes, MaxAge in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig controls bearer token verification on the HTTP API.
type AuthConfig struct {
	Enabled bool      `yaml:"enabled"`
	JWT     JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`

	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// RateLimitConfig contains per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// SeedConfig lists organizations and venues upserted at startup.
type SeedConfig struct {
	Organizations []OrganizationSeed `yaml:"organizations"`
}

// OrganizationSeed is a single seeded organization.
type OrganizationSeed struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Venues []VenueSeed `yaml:"venues"`
}

// VenueSeed is a single seeded venue.
type VenueSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// Environment variables follow the pattern VENUEWATCH_SECTION_KEY,
// for example VENUEWATCH_DATABASE_PATH or VENUEWATCH_API_PORT.
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
		Service: ServiceConfig{
			Name:     "venuewatch",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:             "./data/venuewatch.db",
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 30,
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
		Ingest: IngestConfig{
			Path:             "/ws/alerts",
			Greeting:         `{"serverMsg":"Hello ESP32"}`,
			GreetingDelay:    1000,
			MaxMessageSize:   1 << 20,
			MaxPendingFrames: 1024,
			WriteTimeout:     5,
			ApplyTimeout:     5,
		},
		MQTT: MQTTConfig{
			IngestTelemetry: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "venuewatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "telemetry",
			BatchSize:     500,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/venuewatch.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			},
		},
		Security: SecurityConfig{
			Auth: AuthConfig{
				JWT: JWTConfig{
					Issuer:         "venuewatch",
					AccessTokenTTL: 60,
				},
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
				Burst:             50,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VENUEWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("VENUEWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("VENUEWATCH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("VENUEWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VENUEWATCH_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("VENUEWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VENUEWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("VENUEWATCH_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("VENUEWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("VENUEWATCH_JWT_SECRET"); v != "" {
		cfg.Security.Auth.JWT.Secret = v
	}

	if v := os.Getenv("VENUEWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("VENUEWATCH_TIMEZONE"); v != "" {
		cfg.Service.Timezone = v
	}
}

// Validate checks the configuration for errors and security issues.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.HistoryRetention < 0 {
		errs = append(errs, "database.history_retention must not be negative")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if !strings.HasPrefix(c.Ingest.Path, "/") {
		errs = append(errs, "ingest.path must start with /")
	}
	if c.Ingest.GreetingDelay < 0 {
		errs = append(errs, "ingest.greeting_delay_ms must not be negative")
	}
	if c.Ingest.MaxPendingFrames < 1 {
		errs = append(errs, "ingest.max_pending_frames must be at least 1")
	}

	if _, err := time.LoadLocation(c.Service.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("service.timezone %q is not a known time zone", c.Service.Timezone))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Forged tokens would grant device administration.
	const minJWTSecretLength = 32
	if c.Security.Auth.Enabled {
		if c.Security.Auth.JWT.Secret == "" {
			errs = append(errs, "security.auth.jwt.secret is required (set VENUEWATCH_JWT_SECRET environment variable)")
		} else if len(c.Security.Auth.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.auth.jwt.secret must be at least 32 characters")
		}
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive")
	}

	errs = append(errs, c.Seed.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SeedConfig) validate() []string {
	var errs []string
	orgs := make(map[string]bool)
	venues := make(map[string]bool)

	for i, org := range s.Organizations {
		if org.ID == "" {
			errs = append(errs, fmt.Sprintf("seed.organizations[%d].id is required", i))
		} else if orgs[org.ID] {
			errs = append(errs, fmt.Sprintf("seed.organizations[%d].id %q is duplicated", i, org.ID))
		}
		orgs[org.ID] = true

		for j, v := range org.Venues {
			if v.ID == "" {
				errs = append(errs, fmt.Sprintf("seed.organizations[%d].venues[%d].id is required", i, j))
				continue
			}
			if venues[v.ID] {
				errs = append(errs, fmt.Sprintf("seed venue id %q is duplicated", v.ID))
			}
			venues[v.ID] = true
		}
	}
	return errs
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

// GreetingDelayDuration returns the ingest greeting delay.
func (c IngestConfig) GreetingDelayDuration() time.Duration {
	return time.Duration(c.GreetingDelay) * time.Millisecond
}

// ApplyTimeoutDuration returns the per-update store timeout.
func (c IngestConfig) ApplyTimeoutDuration() time.Duration {
	return time.Duration(c.ApplyTimeout) * time.Second
}

// WriteTimeoutDuration returns the greeting write timeout.
func (c IngestConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// HistoryRetentionDuration returns the telemetry history retention window.
func (c DatabaseConfig) HistoryRetentionDuration() time.Duration {
	return time.Duration(c.HistoryRetention) * 24 * time.Hour
}
