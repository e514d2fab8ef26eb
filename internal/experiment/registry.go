package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/metrics"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/sim"
)

// Registry resolves the names used by configuration files and the CLI.
type Registry struct {
	models map[string]models.Definition
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]models.Definition),
	}

	for _, name := range models.Names() {
		def, _ := models.Lookup(name)
		r.models[name] = def
	}

	return r
}

// RegisterModel adds or replaces a model definition.
func (r *Registry) RegisterModel(def models.Definition) {
	r.models[def.Name] = def
}

func (r *Registry) GetModel(name string) (models.Definition, error) {
	def, ok := r.models[name]
	if !ok {
		return models.Definition{}, fmt.Errorf("unknown model: %s", name)
	}
	return def, nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.ByName(name)
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	return integrators.Names()
}

// DefaultMetrics returns fresh metrics for a run of def over m.
func (r *Registry) DefaultMetrics(def models.Definition, m *model.Model) []sim.Metric {
	out := []sim.Metric{
		metrics.NewTotalStock(),
		metrics.NewStockDrift(),
		metrics.NewThroughput(),
		metrics.NewStability(1e6),
	}
	if p, err := metrics.NewPeak(m, def.Focus); err == nil {
		out = append(out, p)
	}
	if f, err := metrics.NewFinal(m, def.Focus); err == nil {
		out = append(out, f)
	}
	return out
}
