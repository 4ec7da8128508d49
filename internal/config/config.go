package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional JSON/YAML/TOML file read before the environment.
const ConfigFileEnv = "GESTOR_CONFIG"

type Config struct {
	// HTTP Server
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`

	// Per client request budget; 0 requests disables limiting
	RateLimitRequests int           `mapstructure:"rate-limit-requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate-limit-window"`

	// Persisted slot
	DataBackend   string `mapstructure:"data-backend"`
	SlotName      string `mapstructure:"slot-name"`
	DataFile      string `mapstructure:"data-file"`
	SQLiteDBPath  string `mapstructure:"sqlite-db-path"`
	DatabaseURL   string `mapstructure:"database-url"`
	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`
	GCSBucket     string `mapstructure:"gcs-bucket"`
	GCSObject     string `mapstructure:"gcs-object"`

	// AMQP change events
	AMQPURL      string `mapstructure:"amqp-url"`
	AMQPExchange string `mapstructure:"amqp-exchange"`
	AMQPQueue    string `mapstructure:"amqp-queue"`

	// Backup mirrors
	BackupDir           string        `mapstructure:"backup-dir"`
	BackupKeep          int           `mapstructure:"backup-keep"`
	BackupInterval      time.Duration `mapstructure:"backup-interval"`
	GoogleSpreadsheetID string        `mapstructure:"google-spreadsheet-id"`
	GoogleSheetName     string        `mapstructure:"google-sheet-name"`

	// Ledger behaviour
	PendingPolicy string        `mapstructure:"pending-policy"`
	StrictDNI     bool          `mapstructure:"strict-dni"`
	Timezone      string        `mapstructure:"timezone"`
	ImportTTL     time.Duration `mapstructure:"import-ttl"`

	// Logging
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

var defaults = map[string]any{
	"port":             "8081",
	"shutdown-timeout": 30 * time.Second,

	"rate-limit-requests": 120,
	"rate-limit-window":   time.Minute,

	"data-backend":   "file",
	"slot-name":      "client_records",
	"data-file":      "./data/client_records.json",
	"sqlite-db-path": "./data/gestor.db",
	"database-url":   "",
	"redis-addr":     "localhost:6379",
	"redis-password": "",
	"redis-db":       0,
	"gcs-bucket":     "",
	"gcs-object":     "client_records.json",

	"amqp-url":      "",
	"amqp-exchange": "gestor",
	"amqp-queue":    "record_events",

	"backup-dir":            "./data/backups",
	"backup-keep":           30,
	"backup-interval":       time.Minute,
	"google-spreadsheet-id": "",
	"google-sheet-name":     "Registros",

	"pending-policy": "exclude",
	"strict-dni":     false,
	"timezone":       "Local",
	"import-ttl":     15 * time.Minute,

	"log-level":  "info",
	"log-format": "text",
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "file", "sqlite", "postgres", "redis", "gcs"}

// Load reads defaults, then the optional config file, then the environment.
// Environment keys are the upper-cased option names with dashes replaced by
// underscores, e.g. DATA_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.SlotName) == "" {
		errs = append(errs, "slot name cannot be empty")
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "file":
		if c.DataFile == "" {
			errs = append(errs, "data file path cannot be empty when using file backend")
		} else if err := ensureDir(c.DataFile); err != nil {
			errs = append(errs, err.Error())
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errs = append(errs, err.Error())
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required when using redis backend")
		}
		if c.RedisDB < 0 {
			errs = append(errs, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
		}
	case "gcs":
		if c.GCSBucket == "" {
			errs = append(errs, "GCS_BUCKET is required when using gcs backend")
		}
		if c.GCSObject == "" {
			errs = append(errs, "GCS_OBJECT cannot be empty when using gcs backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BackupInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid backup interval %v: must be at least 1 second", c.BackupInterval))
	}

	if c.BackupKeep < 0 {
		errs = append(errs, fmt.Sprintf("invalid backup keep %d: must not be negative", c.BackupKeep))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required when a spreadsheet ID is provided")
	}

	if p := strings.ToLower(c.PendingPolicy); p != "exclude" && p != "include" {
		errs = append(errs, fmt.Sprintf("invalid pending policy '%s': must be 'exclude' or 'include'", c.PendingPolicy))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.ImportTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid import TTL %v: must be at least 1 second", c.ImportTTL))
	} else if c.ImportTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid import TTL %v: must be at most 24 hours", c.ImportTTL))
	}

	if c.RateLimitRequests < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitRequests))
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow < time.Second {
		errs = append(errs, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// Location is the timezone used for period statistics. Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory '%s': %v", dir, err)
		}
	}
	return nil
}
