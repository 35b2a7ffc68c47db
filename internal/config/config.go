// Package config loads and validates the pipeline configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opendem/opendem/internal/logging"
)

// ErrInvalid is wrapped by every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the immutable pipeline configuration, loaded once per run.
type Config struct {
	// Source is the tile service URL template, e.g.
	// https://example.com/terrarium/${z}/${x}/${y}.png
	Source string `yaml:"source"`

	// Bounds is the geographic area of interest:
	// lon min, lat min, lon max, lat max (EPSG:4326).
	Bounds []float64 `yaml:"bounds"`

	// Resolution is the target pixel size in meters (EPSG:3857 units).
	Resolution float64 `yaml:"resolution"`

	// Process names the terrain derivative, e.g. "slope" or "hillshade".
	Process string `yaml:"process"`

	// Output is the result path; its extension selects raster vs vector
	// export.
	Output string `yaml:"output"`

	// Clipping optionally names a polygon boundary source: a local path,
	// an http(s) URL, or a blob URL (s3://, gs://, file://).
	Clipping string `yaml:"clipping"`

	// Mask switches the output to a binary threshold mask when present.
	Mask *Mask `yaml:"mask"`

	CacheDir string `yaml:"cache_dir"`

	Log     logging.Config `yaml:"log"`
	Metrics Metrics        `yaml:"metrics"`
	Publish Publish        `yaml:"publish"`
	Notify  Notify         `yaml:"notify"`
}

// Mask holds optional inclusive threshold bounds. A nil bound means the
// side is unconstrained.
type Mask struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Metrics configures the optional Prometheus endpoint served for the
// duration of the run.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Publish configures optional upload of the final artifact to a blob
// bucket URL (s3://bucket, gs://bucket, file:///dir).
type Publish struct {
	URL string `yaml:"url"`
}

// Notify configures an optional completion webhook.
type Notify struct {
	Endpoint string `yaml:"endpoint"`
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = "./cache"
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate enforces the structural invariants of the configuration.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalid)
	}
	if c.Process == "" {
		return fmt.Errorf("%w: process is required", ErrInvalid)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	if c.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be > 0, got %g", ErrInvalid, c.Resolution)
	}
	if len(c.Bounds) != 4 {
		return fmt.Errorf("%w: bounds must have 4 values (lonmin latmin lonmax latmax), got %d", ErrInvalid, len(c.Bounds))
	}
	if c.Bounds[0] >= c.Bounds[2] {
		return fmt.Errorf("%w: bounds lon min %g must be < lon max %g", ErrInvalid, c.Bounds[0], c.Bounds[2])
	}
	if c.Bounds[1] >= c.Bounds[3] {
		return fmt.Errorf("%w: bounds lat min %g must be < lat max %g", ErrInvalid, c.Bounds[1], c.Bounds[3])
	}
	if c.Mask != nil && c.Mask.Min != nil && c.Mask.Max != nil && *c.Mask.Min > *c.Mask.Max {
		return fmt.Errorf("%w: mask min %g exceeds mask max %g", ErrInvalid, *c.Mask.Min, *c.Mask.Max)
	}
	return nil
}

// BoundsArray returns the validated bounds as a fixed array.
func (c *Config) BoundsArray() [4]float64 {
	var b [4]float64
	copy(b[:], c.Bounds)
	return b
}
