// Package config provides configuration loading and access for the visualiser and proxy.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/crazy3lf/colorconv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen     ScreenConfig      `yaml:"screen"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Bounds     BoundsConfig      `yaml:"bounds"`
	Pollutants []PollutantConfig `yaml:"pollutants"`
	Enabled    map[string]bool   `yaml:"enabled"`
	Camera     CameraConfig      `yaml:"camera"`
	Server     ServerConfig      `yaml:"server"`
	Upstream   UpstreamConfig    `yaml:"upstream"`
	Stations   StationsConfig    `yaml:"stations"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds particle simulation parameters.
type SimulationConfig struct {
	ParticleRadius float64 `yaml:"particle_radius"` // Collision radius (min separation = 2x)
	SpawnMargin    float64 `yaml:"spawn_margin"`    // Shrink factor applied to the box at seeding
	InitialSpeed   float64 `yaml:"initial_speed"`   // Per-axis initial velocity half-range
	CountScale     float64 `yaml:"count_scale"`     // Particles per unit of reading
	MaxParticles   int     `yaml:"max_particles"`   // Per-system particle cap
}

// BoundsConfig holds the full box extents particles are confined to.
type BoundsConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// PollutantConfig describes one pollutant swarm.
type PollutantConfig struct {
	Key        string `yaml:"key"`
	Label      string `yaml:"label"`
	ShortLabel string `yaml:"short_label"`
	Color      string `yaml:"color"`    // #RRGGBB
	Category   string `yaml:"category"` // index, gas, particulate
}

// CameraConfig holds orbit camera parameters.
type CameraConfig struct {
	Distance    float64 `yaml:"distance"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	Yaw         float64 `yaml:"yaw"`         // radians
	Pitch       float64 `yaml:"pitch"`       // radians
	OrbitSpeed  float64 `yaml:"orbit_speed"` // radians per frame of automatic orbit
}

// ServerConfig holds proxy HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	MaxBatch          int           `yaml:"max_batch"` // Max uids per batch lookup
}

// UpstreamConfig holds air-quality API client settings.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker thresholds for upstream calls.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`  // Requests allowed while half-open
	Interval     time.Duration `yaml:"interval"`      // Count reset interval while closed
	Timeout      time.Duration `yaml:"timeout"`       // Open -> half-open delay
	MinRequests  uint32        `yaml:"min_requests"`  // Requests before the ratio is considered
	FailureRatio float64       `yaml:"failure_ratio"` // Trip threshold
}

// StationsConfig holds the station list source.
type StationsConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64       `yaml:"stats_window"`
	PerfCollectorWindow int           `yaml:"perf_collector_window"`
	RefreshInterval     time.Duration `yaml:"refresh_interval"` // Readings refresh period in the viewer
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfX, HalfY, HalfZ float64        // Bounds / 2
	PollutantIndex      map[string]int // key -> index into Pollutants
	RGB                 [][3]uint8     // parsed Pollutants[i].Color
	StatsWindowTicks    int            // Telemetry.StatsWindow * Screen.TargetFPS
}

// envOverrides holds values that may come from the environment.
type envOverrides struct {
	Token      string `env:"AIR_POLLUTION_API_KEY"`
	ServerAddr string `env:"HAZE_SERVER_ADDR"`
	BaseURL    string `env:"HAZE_UPSTREAM_URL"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	if o.Token != "" {
		c.Upstream.Token = o.Token
	}
	if o.ServerAddr != "" {
		c.Server.Addr = o.ServerAddr
	}
	if o.BaseURL != "" {
		c.Upstream.BaseURL = o.BaseURL
	}
	return nil
}

// Validate checks the configuration for values the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error

	r := c.Simulation.ParticleRadius
	if r <= 0 || math.IsNaN(r) {
		errs = append(errs, fmt.Errorf("simulation.particle_radius must be positive, got %v", r))
	}
	for _, axis := range []struct {
		name string
		v    float64
	}{{"x", c.Bounds.X}, {"y", c.Bounds.Y}, {"z", c.Bounds.Z}} {
		if !(axis.v > 2*r) || math.IsInf(axis.v, 0) {
			errs = append(errs, fmt.Errorf("bounds.%s must be finite and greater than %v, got %v", axis.name, 2*r, axis.v))
		}
	}
	if c.Simulation.MaxParticles < 0 {
		errs = append(errs, fmt.Errorf("simulation.max_particles must not be negative, got %d", c.Simulation.MaxParticles))
	}
	if c.Simulation.CountScale < 0 || math.IsNaN(c.Simulation.CountScale) {
		errs = append(errs, fmt.Errorf("simulation.count_scale must not be negative, got %v", c.Simulation.CountScale))
	}

	if len(c.Pollutants) == 0 {
		errs = append(errs, errors.New("pollutants must not be empty"))
	}
	seen := make(map[string]bool, len(c.Pollutants))
	for _, p := range c.Pollutants {
		if p.Key == "" {
			errs = append(errs, errors.New("pollutant key must not be empty"))
			continue
		}
		if seen[p.Key] {
			errs = append(errs, fmt.Errorf("duplicate pollutant key %q", p.Key))
		}
		seen[p.Key] = true
		if _, _, _, err := colorconv.HexToRGB(p.Color); err != nil {
			errs = append(errs, fmt.Errorf("pollutant %q: invalid color %q: %w", p.Key, p.Color, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.HalfX = c.Bounds.X / 2
	c.Derived.HalfY = c.Bounds.Y / 2
	c.Derived.HalfZ = c.Bounds.Z / 2

	c.Derived.PollutantIndex = make(map[string]int, len(c.Pollutants))
	c.Derived.RGB = make([][3]uint8, len(c.Pollutants))
	for i, p := range c.Pollutants {
		c.Derived.PollutantIndex[p.Key] = i
		r, g, b, err := colorconv.HexToRGB(p.Color)
		if err != nil {
			return fmt.Errorf("parsing color for %q: %w", p.Key, err)
		}
		c.Derived.RGB[i] = [3]uint8{r, g, b}
	}

	if c.Enabled == nil {
		c.Enabled = make(map[string]bool)
	}

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.StatsWindowTicks = int(c.Telemetry.StatsWindow * float64(fps))
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}
	return nil
}

// Pollutant returns the pollutant config for key.
func (c *Config) Pollutant(key string) (PollutantConfig, bool) {
	i, ok := c.Derived.PollutantIndex[key]
	if !ok {
		return PollutantConfig{}, false
	}
	return c.Pollutants[i], true
}

// WriteYAML writes the configuration to a YAML file.
// The upstream token is never written.
func (c *Config) WriteYAML(path string) error {
	snapshot := *c
	snapshot.Upstream.Token = ""
	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
