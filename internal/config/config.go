// Package config loads and validates the platform configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CDP_ prefix (e.g., CDP_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Security   SecurityConfig   `mapstructure:"security"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// RedisConfig holds the optional Redis connection used as a shared
// rate-limit store. When Enabled is false the limiter keeps its state
// in process memory and Redis is never dialed.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GetAddr returns the Redis address in host:port format
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// AccessTokenExpiry is the validity window of a short-lived access token
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`
	// RefreshTokenExpiry is the validity window of a long-lived refresh token
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
	APIKeys            APIKeyConfig  `mapstructure:"api_keys"`
}

// APIKeyConfig holds API key generation configuration
type APIKeyConfig struct {
	// Prefix is prepended to every generated key so keys are recognizable in logs and dashboards
	Prefix string `mapstructure:"prefix"`
	// Length is the number of random bytes in the secret part of the key
	Length int `mapstructure:"length"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds sliding-window rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Requests is the per-client quota within the trailing window
	Requests int `mapstructure:"requests"`
	// WindowSeconds is the trailing window length
	WindowSeconds int `mapstructure:"window_seconds"`
}

// Window returns the trailing window as a time.Duration
func (r *RateLimitingConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// DeploymentConfig holds deployment pipeline and app provisioning configuration
type DeploymentConfig struct {
	// BaseDomain is the domain suffix of generated app and function URLs
	BaseDomain string `mapstructure:"base_domain"`
	// MaxAppsPerUser caps how many apps a single account may create
	MaxAppsPerUser int `mapstructure:"max_apps_per_user"`
	// QueueSize is the capacity of the deployment job queue
	QueueSize int `mapstructure:"queue_size"`
	// Workers is the number of pipeline workers consuming the queue
	Workers int `mapstructure:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// AdminConfig holds the bootstrap admin account created on first startup
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Redis
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.password",
		"redis.db",

		// Auth
		"auth.access_token_expiry",
		"auth.refresh_token_expiry",
		"auth.api_keys.prefix",
		"auth.api_keys.length",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests",
		"security.rate_limiting.window_seconds",

		// Deployment
		"deployment.base_domain",
		"deployment.max_apps_per_user",
		"deployment.queue_size",
		"deployment.workers",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Admin bootstrap
		"admin.email",
		"admin.password",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file path if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cloud-deploy-platform")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	// Enable environment variable support
	v.SetEnvPrefix("CDP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Admin.Password = expandEnv(cfg.Admin.Password)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cloud_deploy_platform")
	v.SetDefault("database.user", "platform")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.access_token_expiry", "60m")
	v.SetDefault("auth.refresh_token_expiry", "168h")
	v.SetDefault("auth.api_keys.prefix", "cdp_")
	v.SetDefault("auth.api_keys.length", 32)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:8000"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests", 100)
	v.SetDefault("security.rate_limiting.window_seconds", 60)

	// Deployment defaults
	v.SetDefault("deployment.base_domain", "myplatform.app")
	v.SetDefault("deployment.max_apps_per_user", 10)
	v.SetDefault("deployment.queue_size", 64)
	v.SetDefault("deployment.workers", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "cloud-deploy-platform")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Admin bootstrap defaults (password intentionally empty: bootstrap is skipped unless configured)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	// Validate database
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	// Validate Redis if enabled
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}

	// Validate auth windows
	if c.Auth.AccessTokenExpiry <= 0 {
		return fmt.Errorf("auth.access_token_expiry must be positive")
	}
	if c.Auth.RefreshTokenExpiry <= c.Auth.AccessTokenExpiry {
		return fmt.Errorf("auth.refresh_token_expiry must exceed auth.access_token_expiry")
	}
	if c.Auth.APIKeys.Length < 16 {
		return fmt.Errorf("auth.api_keys.length must be at least 16 bytes")
	}

	// Validate rate limiting
	if c.Security.RateLimiting.Enabled {
		if c.Security.RateLimiting.Requests < 1 {
			return fmt.Errorf("security.rate_limiting.requests must be at least 1")
		}
		if c.Security.RateLimiting.WindowSeconds < 1 {
			return fmt.Errorf("security.rate_limiting.window_seconds must be at least 1")
		}
	}

	// Validate deployment
	if c.Deployment.BaseDomain == "" {
		return fmt.Errorf("deployment.base_domain is required")
	}
	if c.Deployment.MaxAppsPerUser < 1 {
		return fmt.Errorf("deployment.max_apps_per_user must be at least 1")
	}
	if c.Deployment.Workers < 1 {
		return fmt.Errorf("deployment.workers must be at least 1")
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
