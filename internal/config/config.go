package config

import (
	"fmt"
	"maps"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/flowsim/internal/converge"
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/models"
)

const (
	DefaultModel      = "heat"
	DefaultIntegrator = "rk4"
	DefaultDuration   = 100.0
	DefaultTolerance  = 0.001
)

// Config describes one run. A zero Timing means the model's own timing and
// an empty convergence variable means the model's focus id.
type Config struct {
	Model       string             `yaml:"model"`
	Integrator  string             `yaml:"integrator"`
	Duration    float64            `yaml:"duration"`
	Timing      dynamo.Timing      `yaml:"timing,omitempty"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Convergence ConvergenceConfig  `yaml:"convergence"`
}

type ConvergenceConfig struct {
	Variable      string  `yaml:"variable,omitempty"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Integrator: DefaultIntegrator,
		Duration:   DefaultDuration,
		Convergence: ConvergenceConfig{
			Tolerance:     DefaultTolerance,
			MaxIterations: converge.DefaultMaxIterations,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
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

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Params = maps.Clone(c.Params)
	return &cp
}

// TimingFor returns the configured timing, or def when none is set.
func (c *Config) TimingFor(def dynamo.Timing) dynamo.Timing {
	if c.Timing == (dynamo.Timing{}) {
		return def
	}
	return c.Timing
}

// Validate checks names against the model catalogue and integrator set,
// and every parameter override against the model's declarations.
func (c *Config) Validate() error {
	def, err := models.Lookup(c.Model)
	if err != nil {
		return err
	}
	if _, err := integrators.ByName(c.Integrator); err != nil {
		return err
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("config: duration must be positive and finite, got %v", c.Duration)
	}
	if c.Timing != (dynamo.Timing{}) {
		if err := c.Timing.Validate(); err != nil {
			return err
		}
	}
	if c.Convergence.Tolerance < 0 || c.Convergence.MaxIterations < 0 {
		return fmt.Errorf("config: convergence bounds must not be negative")
	}

	m, _ := def.Build()
	if v := c.Convergence.Variable; v != "" {
		if _, _, ok := m.Resolve(v); !ok {
			return fmt.Errorf("config: convergence variable %q not in model %s", v, c.Model)
		}
	}
	for _, id := range sortedKeys(c.Params) {
		p, ok := m.Parameter(id)
		if !ok || !p.Adjustable() {
			return fmt.Errorf("config: %q is not an adjustable parameter of %s", id, c.Model)
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
