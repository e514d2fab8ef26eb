package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/config"
	"github.com/san-kum/flowsim/internal/converge"
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/sim"
)

// Experiment binds a configuration to a built model, integrator and
// metrics.
type Experiment struct {
	cfg       *config.Config
	def       models.Definition
	model     *model.Model
	timing    dynamo.Timing
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the model, applies parameter overrides and attaches the
// registry's default metrics. Overrides become the values a reset restores.
func (e *Experiment) Setup(r *Registry) error {
	def, err := r.GetModel(e.cfg.Model)
	if err != nil {
		return err
	}
	integ, err := r.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	m, modelTiming := def.Build()
	for id, v := range e.cfg.Params {
		applied, _, err := m.SetParameter(id, v)
		if err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		if applied != v {
			logrus.WithFields(logrus.Fields{"param": id, "requested": v, "applied": applied}).Warn("parameter clamped to range")
		}
	}
	m.RebaseParameters()

	timing := e.cfg.TimingFor(modelTiming)
	if err := timing.Validate(); err != nil {
		return err
	}

	e.def = def
	e.model = m
	e.timing = timing
	e.simulator = sim.New(m, integ)
	for _, metric := range r.DefaultMetrics(def, m) {
		e.simulator.AddMetric(metric)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Timing:        e.timing,
		Duration:      e.cfg.Duration,
		ValidateState: true,
	}

	logrus.WithFields(logrus.Fields{
		"model":      e.cfg.Model,
		"integrator": e.simulator.Integrator().Name(),
		"duration":   e.cfg.Duration,
	}).Debug("running experiment")

	return e.simulator.Run(ctx, simCfg)
}

// Seeker returns a convergence seeker over the experiment's simulator and
// the criterion its configuration describes.
func (e *Experiment) Seeker() (*converge.Seeker, converge.Criterion, error) {
	if e.simulator == nil {
		return nil, nil, fmt.Errorf("experiment not setup")
	}
	k, err := converge.New(e.simulator, e.timing)
	if err != nil {
		return nil, nil, err
	}
	if n := e.cfg.Convergence.MaxIterations; n > 0 {
		k.MaxIterations = n
	}

	id := e.cfg.Convergence.Variable
	if id == "" {
		id = e.def.Focus
	}
	tol := e.cfg.Convergence.Tolerance
	if tol == 0 {
		tol = config.DefaultTolerance
	}
	crit, err := converge.DeltaBelow(e.model, id, tol)
	if err != nil {
		return nil, nil, err
	}
	return k, crit, nil
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Model() *model.Model           { return e.model }
func (e *Experiment) Definition() models.Definition { return e.def }
func (e *Experiment) Timing() dynamo.Timing         { return e.timing }
func (e *Experiment) Config() *config.Config        { return e.cfg }
