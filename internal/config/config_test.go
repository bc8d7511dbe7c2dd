package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "rk45", cfg.Integrator)
	assert.Equal(t, []float64{1, 2, 3, 4}, cfg.Linkage.Lengths)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Linkage.Masses)
	assert.Equal(t, 9.81, cfg.Linkage.Gravity)
	assert.InDelta(t, 85*math.Pi/180, cfg.Seed()[0], 1e-15)
	assert.Empty(t, cfg.Init.GuessDeg)
	assert.Nil(t, cfg.Guess(), "zero guess by default")
	assert.Nil(t, GetPreset("reference").Guess())
	require.NoError(t, cfg.Validate())

	sc := cfg.SimConfig()
	assert.True(t, sc.Adaptive)
	assert.Equal(t, 20.0, sc.Duration)
	assert.Equal(t, 1e-6, sc.Tol.Rel)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("crank_rocker")
	require.NotNil(t, cfg)
	assert.Equal(t, 10.0, cfg.Linkage.Torque)

	cfg.Linkage.Lengths[0] = 99
	assert.Equal(t, 1.0, GetPreset("crank_rocker").Linkage.Lengths[0], "presets must not be shared")

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"crank_rocker", "parallelogram", "reference", "unassemblable"}, ListPresets())
	for _, name := range ListPresets() {
		assert.NoError(t, GetPreset(name).Validate(), name)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`
integrator: rk4
linkage:
  lengths: [1, 2, 2, 2]
  torque: 3
init:
  crank_deg: 45
  guess_deg: [10, -10]
sim:
  duration: 5
  sample_dt: 0.02
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rk4", cfg.Integrator)
	assert.Equal(t, []float64{1, 2, 2, 2}, cfg.Linkage.Lengths)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Linkage.Masses)
	assert.Equal(t, 3.0, cfg.Linkage.Torque)
	assert.Equal(t, 9.81, cfg.Linkage.Gravity)
	assert.InDeltaSlice(t, []float64{10 * math.Pi / 180, -10 * math.Pi / 180}, cfg.Guess(), 1e-15)
	require.NoError(t, cfg.Validate())

	sc := cfg.SimConfig()
	assert.False(t, sc.Adaptive)
	assert.Equal(t, 0.02, sc.Dt)
	assert.Equal(t, 5.0, sc.Duration)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	want := GetPreset("parallelogram")
	require.NoError(t, Save(path, want))

	got, err := LoadInto(path, &Config{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("linkage: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative length", func(c *Config) { c.Linkage.Lengths[1] = -2 }},
		{"zero mass", func(c *Config) { c.Linkage.Masses[0] = 0 }},
		{"length count", func(c *Config) { c.Linkage.Lengths = []float64{1, 2, 3} }},
		{"zero duration", func(c *Config) { c.Sim.Duration = 0 }},
		{"no tolerance", func(c *Config) { c.Sim.RTol, c.Sim.ATol = 0, 0 }},
		{"negative sample", func(c *Config) { c.Sim.SampleDt = -1 }},
		{"fixed without step", func(c *Config) { c.Integrator, c.Sim.SampleDt = "euler", 0 }},
		{"guess count", func(c *Config) { c.Init.GuessDeg = []float64{1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
