package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage store.Config

	// Auth configuration
	Auth AuthConfig

	// Permission engine configuration
	Permissions PermissionsConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds OIDC token verification configuration
type AuthConfig struct {
	IssuerURL string
	ClientID  string
	// Allow unauthenticated requests through (guest access to public trees)
	Optional bool
}

// PermissionsConfig holds permission engine configuration
type PermissionsConfig struct {
	// AdminListPath points to the YAML file with the admin user ID allow-list.
	// Empty disables the allow-list; admin status then comes from user records only.
	AdminListPath string

	// CheckTimeout bounds every store read issued by an authorization check.
	// A timed-out read counts as a denied check.
	CheckTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Permissions:   loadPermissionsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("WISHTREE_HOST", "0.0.0.0"),
		Port:            getEnv("WISHTREE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("WISHTREE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WISHTREE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("WISHTREE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("WISHTREE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("WISHTREE_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() store.Config {
	cfg := store.DefaultConfig()

	if storageType := getEnv("WISHTREE_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}
	if pgURL := getEnv("WISHTREE_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("WISHTREE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if timeout := getEnvDuration("WISHTREE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}
	if redisURL := getEnv("WISHTREE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("WISHTREE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("WISHTREE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}

	return cfg
}

// loadAuthConfig loads OIDC verification configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IssuerURL: getEnv("WISHTREE_OIDC_ISSUER_URL", ""),
		ClientID:  getEnv("WISHTREE_OIDC_CLIENT_ID", ""),
		Optional:  getEnvBool("WISHTREE_AUTH_OPTIONAL", true),
	}
}

// loadPermissionsConfig loads permission engine configuration from environment
func loadPermissionsConfig() PermissionsConfig {
	return PermissionsConfig{
		AdminListPath: getEnv("WISHTREE_ADMIN_LIST_PATH", ""),
		CheckTimeout:  getEnvDuration("WISHTREE_PERM_CHECK_TIMEOUT", 3*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("WISHTREE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("WISHTREE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("WISHTREE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("WISHTREE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("WISHTREE_OTEL_SERVICE_NAME", "wishtree"),
		OTelServiceVersion: getEnv("WISHTREE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("WISHTREE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
		// Nothing to validate; in-process store for dev/test.
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	if c.Auth.IssuerURL != "" && c.Auth.ClientID == "" {
		return fmt.Errorf("OIDC client ID is required when an issuer URL is set")
	}

	if c.Permissions.CheckTimeout <= 0 {
		return fmt.Errorf("permission check timeout must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
