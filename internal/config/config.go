package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	once     sync.Once
	instance *Config
)

// ComponentConfig holds the listen address of a network service.
type ComponentConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint on the HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Path  string `yaml:"path"` // empty logs to stdout only
}

// RateLimitConfig is a per-process token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// MetadataConfig tunes how sidecar metadata is turned into archive fields.
type MetadataConfig struct {
	CapitalizeTags       bool `yaml:"capitalize_tags"`
	ParseFilenameAsTitle bool `yaml:"parse_filename_as_title"`
}

type ImportConfig struct {
	Threads    int      `yaml:"threads"`
	Extensions []string `yaml:"extensions"`
}

// Config is the root of archivist.yaml.
type Config struct {
	Server    ComponentConfig `yaml:"server"`
	Health    ComponentConfig `yaml:"health"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Import    ImportConfig    `yaml:"import"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Server:    ComponentConfig{Host: "0.0.0.0", Port: 3000},
		Health:    ComponentConfig{Host: "0.0.0.0", Port: 3001},
		Database:  DatabaseConfig{Path: "./archivist.db"},
		Metrics:   MetricsConfig{Enabled: true, Path: "/metrics"},
		Log:       LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		CORS:      CORSConfig{Origins: []string{"*"}},
		Metadata:  MetadataConfig{ParseFilenameAsTitle: true},
		Import:    ImportConfig{Threads: 4, Extensions: []string{".cbz", ".zip"}},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(f)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port %d out of range", c.Health.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.RateLimit.RPS < 0 {
		return errors.New("ratelimit.rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return errors.New("ratelimit.burst must be at least 1 when rps is set")
	}
	if c.Import.Threads < 1 {
		return errors.New("import.threads must be at least 1")
	}
	return nil
}

// Get returns the process-wide configuration, loaded once from
// $ARCHIVIST_CONFIG (default archivist.yaml). A missing file means defaults.
func Get() *Config {
	once.Do(func() {
		path := os.Getenv("ARCHIVIST_CONFIG")
		if path == "" {
			path = "archivist.yaml"
		}

		cfg, err := Load(path)
		switch {
		case err == nil:
			instance = cfg
		case errors.Is(err, fs.ErrNotExist):
			logrus.WithField("path", path).Warn("config.missing, using defaults")
			instance = Default()
		default:
			logrus.WithError(err).Fatalf("[CONFIG ERROR] could not load %s", path)
		}
	})
	return instance
}

// Address returns host:port.
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
