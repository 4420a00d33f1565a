package config

import "sort"

func preset(system, stepper string, dt, duration float64, init []float64, params map[string]float64) *Config {
	cfg := DefaultConfig()
	cfg.System = system
	cfg.Stepper = stepper
	cfg.Dt = dt
	cfg.Duration = duration
	cfg.InitState = init
	cfg.Params = params
	return cfg
}

var Presets = map[string]map[string]*Config{
	"oscillator": {
		"harmonic": preset("oscillator", "leapfrog", 0.01, 20.0, []float64{1, 0}, nil),
		"damped": preset("oscillator", "implicit", 0.01, 20.0, []float64{1, 0},
			map[string]float64{"damping": 0.4}),
		"stiff": preset("oscillator", "implicit", 0.05, 5.0, []float64{1, 0},
			map[string]float64{"stiffness": 1e4}),
		"driven": preset("oscillator", "rk4", 0.01, 20.0, []float64{0, 0},
			map[string]float64{"force": 1, "damping": 0.2}),
	},
	"spring_chain": {
		"wave": preset("spring_chain", "leapfrog", 0.005, 20.0, nil,
			map[string]float64{"masses": 8, "damping": 0}),
		"driven": preset("spring_chain", "implicit", 0.01, 20.0, nil,
			map[string]float64{"masses": 4, "drive": 2}),
	},
	"pendulum": {
		"swing": preset("pendulum", "implicit", 0.01, 10.0, []float64{1, 0, 0, 0}, nil),
		"small": preset("pendulum", "implicit", 0.005, 20.0,
			[]float64{0.19866933, -0.98006658, 0, 0}, nil),
		"drift": preset("pendulum", "symplectic", 0.01, 10.0, []float64{1, 0, 0, 0}, nil),
		"rk4":   preset("pendulum", "rk4", 0.01, 10.0, []float64{1, 0, 0, 0}, nil),
	},
	"double_pendulum": {
		"chaos": preset("double_pendulum", "implicit", 0.002, 20.0, []float64{1, 0, 2, 0, 0, 0, 0, 0}, nil),
		"damped": preset("double_pendulum", "implicit", 0.005, 10.0, nil,
			map[string]float64{"damping": 0.1}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, name string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
