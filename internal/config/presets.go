package config

import (
	"sort"

	"github.com/san-kum/flowsim/internal/dynamo"
)

var Presets = map[string]map[string]*Config{
	"heat": {
		"default": {
			Model: "heat", Integrator: "rk4", Duration: 60,
		},
		"leaky": {
			Model: "heat", Integrator: "rk4", Duration: 30,
			Params: map[string]float64{"loss": 0.5},
		},
		"insulated": {
			Model: "heat", Integrator: "rk4", Duration: 300,
			Params: map[string]float64{"loss": 0.02},
		},
	},
	"climate": {
		"present": {
			Model: "climate", Integrator: "rk4", Duration: 200,
		},
		"faint_sun": {
			Model: "climate", Integrator: "rk4", Duration: 200,
			Params: map[string]float64{"solar": 0.85},
		},
		"bright_sun": {
			Model: "climate", Integrator: "rk4", Duration: 200,
			Params: map[string]float64{"solar": 1.3},
		},
		"shallow_ocean": {
			Model: "climate", Integrator: "rk4", Duration: 100,
			Params: map[string]float64{"heat_capacity": 2},
		},
	},
	"sir": {
		"baseline": {
			Model: "sir", Integrator: "rk4", Duration: 160,
		},
		"flu": {
			Model: "sir", Integrator: "rk4", Duration: 120,
			Params: map[string]float64{"beta": 0.5, "gamma": 0.25},
		},
		"measles": {
			Model: "sir", Integrator: "rk4", Duration: 60,
			Timing: dynamo.Timing{StepSize: 0.25, SubSteps: 1, StepsPerSecond: 20},
			Params: map[string]float64{"beta": 1.5, "gamma": 0.1},
		},
	},
	"predator_prey": {
		"classic": {
			Model: "predator_prey", Integrator: "rk4", Duration: 200,
		},
		"hungry": {
			Model: "predator_prey", Integrator: "rk4", Duration: 200,
			Params: map[string]float64{"predation": 0.04},
		},
		"euler_drift": {
			Model: "predator_prey", Integrator: "euler", Duration: 200,
		},
	},
	"bathtub": {
		"trickle": {
			Model: "bathtub", Integrator: "rk4", Duration: 100,
			Params: map[string]float64{"faucet": 0.5},
		},
		"flood": {
			Model: "bathtub", Integrator: "rk4", Duration: 100,
			Params: map[string]float64{"faucet": 8},
		},
	},
}

// GetPreset returns a copy of the named preset with default convergence
// settings filled in, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	cp := cfg.Clone()
	if cp.Convergence == (ConvergenceConfig{}) {
		cp.Convergence = DefaultConfig().Convergence
	}
	return cp
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
