package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read by Load.
const DefaultPath = "config.yaml"

// Config holds all configuration for datadoc-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// ShutdownTimeoutSeconds bounds graceful shutdown of in-flight requests.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS" env-default:"10"`

	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Fixtures FixturesConfig `yaml:"fixtures"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether explorer routes require a valid token.
	// Set to false for local development.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`

	// TokenTTLHours is the lifetime of issued login tokens.
	TokenTTLHours int `yaml:"token_ttl_hours" env:"AUTH_TOKEN_TTL_HOURS" env-default:"24"`

	// JWTSecret signs login tokens (HS256).
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML
}

// SessionConfig controls explorer session lifetime.
type SessionConfig struct {
	TTLMinutes     int `yaml:"ttl_minutes" env:"SESSION_TTL_MINUTES" env-default:"60"`
	CleanupMinutes int `yaml:"cleanup_minutes" env:"SESSION_CLEANUP_MINUTES" env-default:"10"`

	// CookieSecret signs the session cookie. A random key is generated at startup
	// if empty, which invalidates sessions on restart.
	CookieSecret string `yaml:"-" env:"SESSION_COOKIE_SECRET"` // Secret - not in YAML
}

// FixturesConfig points at an alternate fixture catalog.
type FixturesConfig struct {
	// Path to a YAML fixtures file. Empty uses the embedded defaults.
	Path string `yaml:"path" env:"FIXTURES_PATH" env-default:""`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// File enables rotated JSON file output in addition to the console.
	File       string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"30"`
}

// ExportConfig controls CLI exports.
type ExportConfig struct {
	Dir string `yaml:"dir" env:"EXPORT_DIR" env-default:"."`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultPath, version)
}

// LoadFrom reads configuration from path with environment variable overrides.
// A missing file is not an error; configuration then comes from the environment
// and defaults only.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.Auth.EnableVerification && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when auth verification is enabled")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("auth.token_ttl_hours must be positive")
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	if c.Session.CleanupMinutes <= 0 {
		return fmt.Errorf("session.cleanup_minutes must be positive")
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("shutdown_timeout_seconds must be positive")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

// IsProduction reports whether the service runs in a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TokenTTL returns the login token lifetime.
func (c *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// TTL returns the explorer session idle lifetime.
func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// CleanupInterval returns how often expired sessions are purged.
func (c *SessionConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
