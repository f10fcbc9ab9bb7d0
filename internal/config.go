package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/snapshot"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Library   LibraryConfig     `yaml:"library"`
	Previews  PreviewsConfig    `yaml:"previews"`
	Snapshot  SnapshotConfig    `yaml:"snapshot"`
	Ingest    IngestConfig      `yaml:"ingest"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.Previews.Validate(); err != nil {
		return err
	}
	if err := c.Snapshot.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig holds the path to the watched wallpaper directory.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PreviewsConfig holds the directory rendered previews are written to.
type PreviewsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the previews configuration.
func (c *PreviewsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SnapshotConfig selects and locates the durable catalog snapshot.
type SnapshotConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(snapshot.DriverSQLite, snapshot.DriverFile)),
		validation.Field(&c.Path, validation.Required),
	)
}

// IngestConfig bounds the ingestion pipeline.
type IngestConfig struct {
	Workers            int `yaml:"workers"`
	QueueSize          int `yaml:"queue_size"`
	FileTimeoutSeconds int `yaml:"file_timeout_seconds"`
}

// FileTimeout returns the per-file ingestion timeout.
func (c *IngestConfig) FileTimeout() time.Duration {
	return time.Duration(c.FileTimeoutSeconds) * time.Second
}

// Validate validates the ingest configuration.
func (c *IngestConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.QueueSize, validation.Required, validation.Min(1), validation.Max(65536)),
		validation.Field(&c.FileTimeoutSeconds, validation.Required, validation.Min(1), validation.Max(600)),
	)
}

// RateLimitConfig bounds the HTTP surface. Limits of zero disable the
// corresponding limiter.
type RateLimitConfig struct {
	WindowMinutes int `yaml:"window_minutes"`
	MaxAPI        int `yaml:"max_api"`
	MaxDownloads  int `yaml:"max_downloads"`
}

// Window returns the rate limit window.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WindowMinutes, validation.Required, validation.Min(1), validation.Max(1440)),
		validation.Field(&c.MaxAPI, validation.Min(0)),
		validation.Field(&c.MaxDownloads, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Path: "./wallpapers",
		},
		Previews: PreviewsConfig{
			Path: "./previews",
		},
		Snapshot: SnapshotConfig{
			Driver: snapshot.DriverSQLite,
			Path:   "./sowilo.db",
		},
		Ingest: IngestConfig{
			Workers:            4,
			QueueSize:          256,
			FileTimeoutSeconds: 30,
		},
		RateLimit: RateLimitConfig{
			WindowMinutes: 15,
			MaxAPI:        100,
			MaxDownloads:  30,
		},
	}
}
