// Package config loads the lifeplan YAML configuration and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/lifeplan/internal/constants"
)

// HTTPConfig configures the API server
type HTTPConfig struct {
	Address   string `yaml:"address"`
	JWTIssuer string `yaml:"jwt_issuer"`
	// JWTSecret signs bearer tokens. Prefer the OS keyring or LIFEPLAN_JWT_SECRET over
	// storing it here.
	JWTSecret string `yaml:"jwt_secret,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Dir holds rotated log files; empty logs to stderr only
	Dir string `yaml:"dir"`
}

// Config is the top-level application configuration.
type Config struct {
	// Database is a SQLite file path or a PostgreSQL connection string without a password.
	// Empty means "use the OS keyring, then the default SQLite path".
	Database string `yaml:"database"`

	// User owns the rows created from the CLI
	User string `yaml:"user"`

	// Timezone is used for users whose profile has no timezone
	Timezone string `yaml:"timezone"`

	// HorizonDays is how many days `agenda` and the TUI show by default
	HorizonDays int `yaml:"horizon_days"`

	// MaxRangeDays caps a single materialization request
	MaxRangeDays int `yaml:"max_range_days"`

	HTTP HTTPConfig `yaml:"http"`
	Log  LogConfig  `yaml:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		User:         constants.DefaultLocalUser,
		Timezone:     constants.DefaultTimezone,
		HorizonDays:  constants.DefaultHorizonDays,
		MaxRangeDays: constants.DefaultMaxRangeDays,
		HTTP: HTTPConfig{
			Address:   constants.DefaultHTTPAddress,
			JWTIssuer: constants.DefaultJWTIssuer,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Normalize fills in missing or zero values so partially-filled configs still work.
func (c *Config) Normalize() {
	if c.User == "" {
		c.User = constants.DefaultLocalUser
	}
	if c.Timezone == "" {
		c.Timezone = constants.DefaultTimezone
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = constants.DefaultHorizonDays
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = constants.DefaultMaxRangeDays
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = constants.DefaultHTTPAddress
	}
	if c.HTTP.JWTIssuer == "" {
		c.HTTP.JWTIssuer = constants.DefaultJWTIssuer
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

// ApplyEnv overrides file values with LIFEPLAN_* environment variables.
func (c *Config) ApplyEnv() {
	c.Database = getEnv(constants.EnvDatabase, c.Database)
	c.User = getEnv(constants.EnvUserID, c.User)
	c.Timezone = getEnv(constants.EnvTimezone, c.Timezone)
	c.MaxRangeDays = getIntEnv(constants.EnvMaxRange, c.MaxRangeDays)
	c.HTTP.Address = getEnv(constants.EnvHTTPAddress, c.HTTP.Address)
	c.HTTP.JWTSecret = getEnv(constants.EnvJWTSecret, c.HTTP.JWTSecret)
	c.HTTP.JWTIssuer = getEnv(constants.EnvJWTIssuer, c.HTTP.JWTIssuer)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600 perms and returned
//   - Otherwise the YAML is read and normalized
//
// Environment overrides are not applied; call ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory if needed.
// The file is written with 0600 permissions since it may hold a JWT secret.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// IsPostgres reports whether database names a PostgreSQL connection string
func IsPostgres(database string) bool {
	return strings.HasPrefix(database, "postgres://") ||
		strings.HasPrefix(database, "postgresql://") ||
		strings.Contains(database, "host=")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
