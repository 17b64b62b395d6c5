// Package config loads the settings shared by the dlfl command's
// subcommands from a TOML file, with command-line flags taking priority.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/dlfl/pkg/hull"
	"github.com/chazu/dlfl/pkg/kernel/sdfx"
	"github.com/chazu/dlfl/pkg/meshio"
	"github.com/chazu/dlfl/pkg/pool"
	"github.com/chazu/dlfl/pkg/smooth"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the tunables of every subcommand.
type Config struct {
	// Hull
	Epsilon float64 `toml:"epsilon"`

	// Mesh pools
	PoolBatch int `toml:"pool_batch"`
	PoolLimit int `toml:"pool_limit"`

	// Smoothing
	SmoothIterations int    `toml:"smooth_iterations"`
	SmoothMode       string `toml:"smooth_mode"`

	// Solids and scripts
	Kernel        string  `toml:"kernel"`
	MeshCells     int     `toml:"mesh_cells"`
	WeldThreshold float64 `toml:"weld_threshold"`
	EvalTimeout   string  `toml:"eval_timeout"`

	LogLevel string `toml:"log_level"`
}

// Solid kernel names.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Epsilon:          hull.DefaultEpsilon,
		PoolBatch:        pool.DefaultBatch,
		SmoothIterations: 1,
		SmoothMode:       smooth.ModeTangential.String(),
		Kernel:           KernelSdfx,
		MeshCells:        sdfx.DefaultMeshCells,
		WeldThreshold:    meshio.DefaultWeld,
		EvalTimeout:      "5s",
		LogLevel:         "info",
	}
}

// Load reads a TOML config file on top of the defaults. Keys missing from
// the file keep their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return Config{}, fmt.Errorf("parse: unknown keys:\n%s", serr.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("parse: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	return cfg, nil
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Flags holds command-line values that override config file settings.
// Zero values leave the file setting alone.
type Flags struct {
	Epsilon    float64
	Iterations int
	Mode       string
	Kernel     string
	Cells      int
	Weld       float64
	Timeout    time.Duration
	LogLevel   string
}

// Resolve applies flags over c, then fills any remaining zero fields with
// defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.Epsilon > 0 {
		c.Epsilon = flags.Epsilon
	}
	if flags.Iterations > 0 {
		c.SmoothIterations = flags.Iterations
	}
	if flags.Mode != "" {
		c.SmoothMode = flags.Mode
	}
	if flags.Kernel != "" {
		c.Kernel = flags.Kernel
	}
	if flags.Cells > 0 {
		c.MeshCells = flags.Cells
	}
	if flags.Weld > 0 {
		c.WeldThreshold = flags.Weld
	}
	if flags.Timeout > 0 {
		c.EvalTimeout = flags.Timeout.String()
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	def := Default()
	if c.Epsilon <= 0 {
		c.Epsilon = def.Epsilon
	}
	if c.PoolBatch <= 0 {
		c.PoolBatch = def.PoolBatch
	}
	if c.SmoothMode == "" {
		c.SmoothMode = def.SmoothMode
	}
	if c.Kernel == "" {
		c.Kernel = def.Kernel
	}
	if c.MeshCells <= 0 {
		c.MeshCells = def.MeshCells
	}
	if c.WeldThreshold <= 0 {
		c.WeldThreshold = def.WeldThreshold
	}
	if c.EvalTimeout == "" {
		c.EvalTimeout = def.EvalTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("epsilon must not be negative, got %g", c.Epsilon))
	}
	if c.PoolBatch < 0 || c.PoolLimit < 0 {
		errs = append(errs, fmt.Errorf("pool sizes must not be negative, got batch %d limit %d", c.PoolBatch, c.PoolLimit))
	}
	if c.PoolLimit > 0 && c.PoolLimit < c.PoolBatch {
		errs = append(errs, fmt.Errorf("pool_limit %d is smaller than pool_batch %d", c.PoolLimit, c.PoolBatch))
	}
	if c.SmoothIterations < 0 {
		errs = append(errs, fmt.Errorf("smooth_iterations must not be negative, got %d", c.SmoothIterations))
	}
	if _, err := smooth.ParseMode(c.SmoothMode); err != nil {
		errs = append(errs, err)
	}
	switch c.Kernel {
	case KernelSdfx, KernelManifold:
	default:
		errs = append(errs, fmt.Errorf("kernel must be %q or %q, got %q", KernelSdfx, KernelManifold, c.Kernel))
	}
	if c.MeshCells < 0 {
		errs = append(errs, fmt.Errorf("mesh_cells must not be negative, got %d", c.MeshCells))
	}
	if c.WeldThreshold < 0 {
		errs = append(errs, fmt.Errorf("weld_threshold must not be negative, got %g", c.WeldThreshold))
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Mode returns the parsed smoothing mode.
func (c Config) Mode() (smooth.Mode, error) {
	return smooth.ParseMode(c.SmoothMode)
}

// Timeout returns the parsed evaluation timeout. Empty means zero.
func (c Config) Timeout() (time.Duration, error) {
	if c.EvalTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.EvalTimeout)
	if err != nil {
		return 0, fmt.Errorf("eval_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("eval_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// PoolOptions returns the pool settings as options for new meshes.
func (c Config) PoolOptions() []pool.Option {
	var opts []pool.Option
	if c.PoolBatch > 0 {
		opts = append(opts, pool.WithBatch(c.PoolBatch))
	}
	if c.PoolLimit > 0 {
		opts = append(opts, pool.WithLimit(c.PoolLimit))
	}
	return opts
}
