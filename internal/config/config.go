// Package config loads run settings from YAML files and named presets.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/linkage"
)

const (
	DefaultIntegrator = "rk45"
	DefaultDuration   = 20.0
	DefaultRTol       = 1e-6
	DefaultATol       = 1e-6
	DefaultSampleDt   = 0.01
	DefaultCrankDeg   = 85.0
	DefaultMaxSteps   = 1_000_000
	DefaultGravity    = 9.81
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name        string        `yaml:"name,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Integrator  string        `yaml:"integrator"`
	Linkage     LinkageConfig `yaml:"linkage"`
	Init        InitConfig    `yaml:"init"`
	Sim         SimConfig     `yaml:"sim"`
}

type LinkageConfig struct {
	Lengths []float64 `yaml:"lengths"`
	Masses  []float64 `yaml:"masses"`
	// Inertias about the mass centers; empty selects thin rods.
	Inertias []float64 `yaml:"inertias,omitempty"`
	Gravity  float64   `yaml:"gravity"`
	Torque   float64   `yaml:"torque"`
}

type InitConfig struct {
	CrankDeg      float64   `yaml:"crank_deg"`
	GuessDeg      []float64 `yaml:"guess_deg,omitempty"`
	Tolerance     float64   `yaml:"tolerance"`
	MaxIterations int       `yaml:"max_iterations"`
}

type SimConfig struct {
	Duration float64 `yaml:"duration"`
	RTol     float64 `yaml:"rtol"`
	ATol     float64 `yaml:"atol"`
	SampleDt float64 `yaml:"sample_dt"`
	// Dt is the fixed step, or the first step of adaptive runs when set.
	Dt       float64 `yaml:"dt"`
	MaxDt    float64 `yaml:"max_dt"`
	MaxSteps int     `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "reference",
		Integrator: DefaultIntegrator,
		Linkage: LinkageConfig{
			Lengths: []float64{1, 2, 3, 4},
			Masses:  []float64{1, 2, 3},
			Gravity: DefaultGravity,
		},
		Init: InitConfig{
			CrankDeg:  DefaultCrankDeg,
			Tolerance: 1e-6,
		},
		Sim: SimConfig{
			Duration: DefaultDuration,
			RTol:     DefaultRTol,
			ATol:     DefaultATol,
			SampleDt: DefaultSampleDt,
			MaxSteps: DefaultMaxSteps,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	return LoadInto(path, DefaultConfig())
}

// LoadInto reads path over base, so that keys missing from the file keep
// the values of base.
func LoadInto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Linkage.Lengths = append([]float64(nil), c.Linkage.Lengths...)
	out.Linkage.Masses = append([]float64(nil), c.Linkage.Masses...)
	if c.Linkage.Inertias != nil {
		out.Linkage.Inertias = append([]float64(nil), c.Linkage.Inertias...)
	}
	if c.Init.GuessDeg != nil {
		out.Init.GuessDeg = append([]float64(nil), c.Init.GuessDeg...)
	}
	return &out
}

// Params returns the model constants.
func (c *Config) Params() linkage.Params {
	p := linkage.Params{
		Lengths: c.Linkage.Lengths,
		Masses:  c.Linkage.Masses,
		Gravity: c.Linkage.Gravity,
		Torque:  c.Linkage.Torque,
	}
	if len(c.Linkage.Inertias) > 0 {
		p.Inertias = c.Linkage.Inertias
	}
	return p
}

// Seed returns the crank angle in radians.
func (c *Config) Seed() []float64 {
	return []float64{c.Init.CrankDeg * math.Pi / 180}
}

// Guess returns the dependent-angle guess in radians, nil for zeros.
func (c *Config) Guess() []float64 {
	if len(c.Init.GuessDeg) == 0 {
		return nil
	}
	out := make([]float64, len(c.Init.GuessDeg))
	for i, d := range c.Init.GuessDeg {
		out[i] = d * math.Pi / 180
	}
	return out
}

// Adaptive reports whether the integrator picks its own steps.
func (c *Config) Adaptive() bool {
	return c.Integrator == "rk45" || c.Integrator == ""
}

// SimConfig returns the integrator driver settings.
func (c *Config) SimConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Duration = c.Sim.Duration
	cfg.Tol = dynamo.Tolerance{Rel: c.Sim.RTol, Abs: c.Sim.ATol}
	cfg.SampleDt = c.Sim.SampleDt
	cfg.Dt = c.Sim.Dt
	cfg.MaxDt = c.Sim.MaxDt
	cfg.MaxSteps = c.Sim.MaxSteps
	cfg.Adaptive = c.Adaptive()
	if !cfg.Adaptive && cfg.Dt == 0 {
		cfg.Dt = c.Sim.SampleDt
	}
	return cfg
}

// Validate checks the model constants and the run settings.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s := c.Sim
	switch {
	case !(s.Duration > 0):
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, s.Duration)
	case s.RTol < 0 || s.ATol < 0 || s.RTol+s.ATol == 0:
		return fmt.Errorf("%w: tolerances must be non-negative and not both zero", ErrInvalid)
	case s.SampleDt < 0 || s.Dt < 0 || s.MaxDt < 0 || s.MaxSteps < 0:
		return fmt.Errorf("%w: negative step settings", ErrInvalid)
	case !c.Adaptive() && s.Dt == 0 && s.SampleDt == 0:
		return fmt.Errorf("%w: fixed-step integrator %q needs dt or sample_dt", ErrInvalid, c.Integrator)
	case c.Init.Tolerance < 0:
		return fmt.Errorf("%w: negative closure tolerance", ErrInvalid)
	case len(c.Init.GuessDeg) != 0 && len(c.Init.GuessDeg) != len(c.Linkage.Masses)-1:
		return fmt.Errorf("%w: %d guesses for %d dependent angles",
			ErrInvalid, len(c.Init.GuessDeg), len(c.Linkage.Masses)-1)
	}
	return nil
}
