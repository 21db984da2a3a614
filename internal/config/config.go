// Package config loads layered configuration (defaults, YAML file,
// environment) and builds the process logger.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/raphaelgruber/fortroute/internal/db"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "FORTROUTE_CONFIG"

// DefaultPath is used when PathEnvVar is unset.
const DefaultPath = "fortroute.yaml"

// Config holds all configuration values.
type Config struct {
	Store     StoreConfig   `koanf:"store"`
	SurrealDB SurrealConfig `koanf:"surrealdb"`
	Log       LogConfig     `koanf:"log"`
	Sites     SitesConfig   `koanf:"sites"`
	Server    ServerConfig  `koanf:"server"`
	Planner   PlannerConfig `koanf:"planner"`
}

// StoreConfig selects the persistence backend for learning state.
type StoreConfig struct {
	Backend string `koanf:"backend" validate:"oneof=memory badger surrealdb"`
	Path    string `koanf:"path"`
}

// SurrealConfig is the SurrealDB connection, used when store.backend is surrealdb.
type SurrealConfig struct {
	URL       string `koanf:"url" validate:"required"`
	Namespace string `koanf:"namespace"`
	Database  string `koanf:"database"`
	User      string `koanf:"user"`
	Pass      string `koanf:"pass"`
	AuthLevel string `koanf:"auth_level" validate:"oneof=root database"`
}

// LogConfig controls the logger built by SetupLogger.
type LogConfig struct {
	File  string `koanf:"file"`
	Level string `koanf:"level"`
}

// SitesConfig points at extra site documents.
type SitesConfig struct {
	Dir string `koanf:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int     `koanf:"port" validate:"min=1,max=65535"`
	IngestRate  float64 `koanf:"ingest_rate" validate:"gt=0"`
	IngestBurst int     `koanf:"ingest_burst" validate:"min=1"`
}

// PlannerConfig holds planning defaults.
type PlannerConfig struct {
	DefaultEnergy string `koanf:"default_energy" validate:"oneof=low medium high"`
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			Backend: db.BackendBadger,
			Path:    "./data/fortroute",
		},
		SurrealDB: SurrealConfig{
			URL:       "ws://localhost:8000/rpc",
			Namespace: "fortroute",
			Database:  "learning",
			User:      "root",
			Pass:      "root",
			AuthLevel: "root",
		},
		Log: LogConfig{
			File:  "/tmp/fortroute.log",
			Level: "INFO",
		},
		Server: ServerConfig{
			Port:        8484,
			IngestRate:  20,
			IngestBurst: 40,
		},
		Planner: PlannerConfig{
			DefaultEnergy: "medium",
		},
	}
}

// envKeys maps environment variables onto config paths. Unlisted variables
// are ignored.
var envKeys = map[string]string{
	"fortroute_store_backend":  "store.backend",
	"fortroute_store_path":     "store.path",
	"surrealdb_url":            "surrealdb.url",
	"surrealdb_namespace":      "surrealdb.namespace",
	"surrealdb_database":       "surrealdb.database",
	"surrealdb_user":           "surrealdb.user",
	"surrealdb_pass":           "surrealdb.pass",
	"surrealdb_auth_level":     "surrealdb.auth_level",
	"fortroute_log_file":       "log.file",
	"fortroute_log_level":      "log.level",
	"fortroute_sites_dir":      "sites.dir",
	"fortroute_port":           "server.port",
	"fortroute_ingest_rate":    "server.ingest_rate",
	"fortroute_ingest_burst":   "server.ingest_burst",
	"fortroute_default_energy": "planner.default_energy",
}

func envKey(key string) string {
	return envKeys[strings.ToLower(key)]
}

// Load reads configuration with precedence env > file > defaults. A .env
// file in the working directory is loaded into the environment first; the
// config file is optional.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	path := os.Getenv(PathEnvVar)
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if os.Getenv(PathEnvVar) != "" {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() slog.Level {
	return parseLogLevel(c.Log.Level)
}

// Persistence converts the store settings for db.Open.
func (c Config) Persistence() db.StoreConfig {
	return db.StoreConfig{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		Surreal: db.Config{
			URL:       c.SurrealDB.URL,
			Namespace: c.SurrealDB.Namespace,
			Database:  c.SurrealDB.Database,
			Username:  c.SurrealDB.User,
			Password:  c.SurrealDB.Pass,
			AuthLevel: c.SurrealDB.AuthLevel,
		},
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
