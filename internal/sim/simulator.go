package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// Simulator composes the graph evaluator of a model with the active
// integrator. It is not safe for concurrent use.
type Simulator struct {
	model      *model.Model
	eval       *model.Evaluator
	integrator dynamo.Integrator
	metrics    []Metric
	observers  []Observer
}

func New(m *model.Model, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		model:      m,
		eval:       model.NewEvaluator(m),
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Model() *model.Model               { return s.model }
func (s *Simulator) Integrator() dynamo.Integrator     { return s.integrator }
func (s *Simulator) SetIntegrator(i dynamo.Integrator) { s.integrator = i }

// Evaluate resolves every derived quantity at (stocks, t).
func (s *Simulator) Evaluate(stocks dynamo.State, t float64) (model.Record, error) {
	return s.eval.Evaluate(stocks, t)
}

// InitialRecord evaluates the model at its declared initial stocks and t=0.
func (s *Simulator) InitialRecord() (model.Record, error) {
	x := s.model.InitialStocks()
	rec, err := s.eval.Evaluate(x, 0)
	if err != nil {
		return model.Record{}, &dynamo.SimulationError{Time: 0, State: x, Wrapped: err}
	}
	return rec, nil
}

// Derivative returns the per-stock net rate function of the model.
func (s *Simulator) Derivative() dynamo.Derivative {
	return func(y dynamo.State, x float64) (dynamo.State, error) {
		rec, err := s.eval.Evaluate(y, x)
		if err != nil {
			return nil, err
		}
		return s.model.NetRates(rec.Flows), nil
	}
}

// Step integrates from (stocks, t) to t+h and returns the new stock values.
func (s *Simulator) Step(stocks dynamo.State, t, h float64) (dynamo.State, error) {
	next, err := s.integrator.Step(s.Derivative(), stocks, t, h)
	if err != nil {
		return nil, &dynamo.SimulationError{Time: t, State: stocks.Clone(), Wrapped: err}
	}
	return next, nil
}

// StepExt performs Step and evaluates the model at the new state, so the
// returned record is consistent with time t+h.
func (s *Simulator) StepExt(stocks dynamo.State, t, h float64) (model.Record, error) {
	next, err := s.Step(stocks, t, h)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := s.eval.Evaluate(next, t+h)
	if err != nil {
		return model.Record{}, &dynamo.SimulationError{Time: t + h, State: next, Wrapped: err}
	}
	return rec, nil
}

// Advance takes one emitted step of timing: SubSteps+1 chained StepExt calls
// of size timing.H(), starting from rec.
func (s *Simulator) Advance(rec model.Record, timing dynamo.Timing) (model.Record, error) {
	h := timing.H()
	for i := 0; i <= timing.SubSteps; i++ {
		next, err := s.StepExt(rec.Stocks, rec.Time, h)
		if err != nil {
			return model.Record{}, err
		}
		rec = next
	}
	return rec, nil
}

// Run advances the model from its initial record for cfg.Duration of
// simulated time, one emitted step at a time.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.steps()
	result := &Result{
		Records: make([]model.Record, 0, min(steps, maxPrealloc)+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	rec, err := s.InitialRecord()
	if err != nil {
		return nil, err
	}
	s.observe(rec)
	result.Records = append(result.Records, rec)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		next, err := s.Advance(rec, cfg.Timing)
		if err != nil {
			return result, err
		}

		if cfg.ValidateState && !dynamo.State(next.Stocks).IsValid() {
			err := &dynamo.SimulationError{Time: next.Time, State: next.Stocks, Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, err)
			logrus.WithFields(logrus.Fields{"step": i, "time": next.Time}).Debug("stopping run on invalid state")
			break
		}

		rec = next
		result.StepsTaken++
		s.observe(rec)
		result.Records = append(result.Records, rec)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) observe(rec model.Record) {
	for _, m := range s.metrics {
		m.Observe(rec)
	}
	for _, obs := range s.observers {
		obs.OnRecord(rec)
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if err := cfg.Timing.Validate(); err != nil {
		return err
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be positive and finite, got %v", cfg.Duration)
	}
	if cfg.Duration/cfg.Timing.StepSize > MaxSteps {
		return fmt.Errorf("duration %v spans more than %d steps of %v", cfg.Duration, MaxSteps, cfg.Timing.StepSize)
	}
	return nil
}

// RunWithCallback streams the same records Run would produce to callback,
// stopping early when it returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(model.Record) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	rec, err := s.InitialRecord()
	if err != nil {
		return err
	}
	if !callback(rec) {
		return nil
	}

	for i := 0; i < cfg.steps(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err = s.Advance(rec, cfg.Timing)
		if err != nil {
			return err
		}

		if cfg.ValidateState && !dynamo.State(rec.Stocks).IsValid() {
			return fmt.Errorf("invalid state at t=%.4f: %w", rec.Time, dynamo.ErrInvalidState)
		}
		if !callback(rec) {
			return nil
		}
	}

	return nil
}
