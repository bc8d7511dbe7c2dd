package config

import "sort"

var Presets = map[string]*Config{
	"reference": DefaultConfig(),
	"parallelogram": {
		Name:        "parallelogram",
		Description: "opposite links equal; passes change points where the loop can fold",
		Integrator:  "rk45",
		Linkage: LinkageConfig{
			Lengths: []float64{1, 3, 1, 3},
			Masses:  []float64{1, 3, 1},
			Gravity: DefaultGravity,
		},
		Init: InitConfig{CrankDeg: 60, GuessDeg: []float64{0, -120}, Tolerance: 1e-6},
		Sim: SimConfig{
			Duration: 5, RTol: DefaultRTol, ATol: DefaultATol,
			SampleDt: DefaultSampleDt, MaxSteps: DefaultMaxSteps,
		},
	},
	"crank_rocker": {
		Name:        "crank_rocker",
		Description: "Grashof loop with a short crank driven by a constant torque",
		Integrator:  "rk45",
		Linkage: LinkageConfig{
			Lengths: []float64{1, 3, 2.5, 3.5},
			Masses:  []float64{0.5, 1.5, 1.25},
			Gravity: DefaultGravity,
			Torque:  10,
		},
		Init: InitConfig{CrankDeg: 90, Tolerance: 1e-6},
		Sim: SimConfig{
			Duration: 10, RTol: DefaultRTol, ATol: DefaultATol,
			SampleDt: DefaultSampleDt, MaxSteps: DefaultMaxSteps,
		},
	},
	"unassemblable": {
		Name:        "unassemblable",
		Description: "ground link longer than the rest of the chain; closure fails",
		Integrator:  "rk45",
		Linkage: LinkageConfig{
			Lengths: []float64{1, 1, 1, 10},
			Masses:  []float64{1, 1, 1},
			Gravity: DefaultGravity,
		},
		Init: InitConfig{CrankDeg: DefaultCrankDeg, Tolerance: 1e-6},
		Sim: SimConfig{
			Duration: 1, RTol: DefaultRTol, ATol: DefaultATol,
			SampleDt: DefaultSampleDt, MaxSteps: DefaultMaxSteps,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names in order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
