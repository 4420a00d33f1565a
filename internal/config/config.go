package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSystem      = "pendulum"
	DefaultStepper     = "implicit"
	DefaultDt          = 0.01
	DefaultDuration    = 10.0
	DefaultSampleEvery = 1
	DefaultMaxIters    = 20
	DefaultTolerance   = 1e-10
)

type Config struct {
	System      string             `yaml:"system" json:"system"`
	Stepper     string             `yaml:"stepper" json:"stepper"`
	Dt          float64            `yaml:"dt" json:"dt"`
	Duration    float64            `yaml:"duration" json:"duration"`
	SampleEvery int                `yaml:"sample_every" json:"sample_every"`
	Newton      NewtonConfig       `yaml:"newton" json:"newton"`
	InitState   []float64          `yaml:"init_state,omitempty" json:"init_state,omitempty"`
	Params      map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// NewtonConfig only affects the implicit stepper.
type NewtonConfig struct {
	MaxIters  int     `yaml:"max_iters" json:"max_iters"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
}

func DefaultConfig() *Config {
	return &Config{
		System:      DefaultSystem,
		Stepper:     DefaultStepper,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		SampleEvery: DefaultSampleEvery,
		Newton: NewtonConfig{
			MaxIters:  DefaultMaxIters,
			Tolerance: DefaultTolerance,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
	if c.InitState != nil {
		out.InitState = append([]float64(nil), c.InitState...)
	}
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}
