package dynamo

import (
	"fmt"
	"math"
)

// State holds one value per stock, in the model's declared order.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Derivative returns the rate of change of every stock at (y, x).
type Derivative func(y State, x float64) (State, error)

// Integrator advances y from x to x+h. Implementations must not retain y or
// the returned slice.
type Integrator interface {
	Name() string
	Step(f Derivative, y State, x, h float64) (State, error)
}

// Timing controls how a model is advanced. StepSize is simulated time per
// emitted result, SubSteps the number of extra unreported integration steps
// folded into each one, StepsPerSecond the wall-clock emission cadence.
type Timing struct {
	StepSize       float64 `yaml:"step_size" json:"step_size"`
	SubSteps       int     `yaml:"sub_steps" json:"sub_steps"`
	StepsPerSecond float64 `yaml:"steps_per_second" json:"steps_per_second"`
}

func DefaultTiming() Timing {
	return Timing{
		StepSize:       1,
		SubSteps:       0,
		StepsPerSecond: 60,
	}
}

// Validate rejects timings that would feed a zero or negative step to an
// integrator.
func (t Timing) Validate() error {
	if !(t.StepSize > 0) || math.IsInf(t.StepSize, 0) {
		return fmt.Errorf("%w: step size must be positive, got %v", ErrInvalidTiming, t.StepSize)
	}
	if t.SubSteps < 0 {
		return fmt.Errorf("%w: sub-steps must not be negative, got %d", ErrInvalidTiming, t.SubSteps)
	}
	if !(t.StepsPerSecond > 0) || math.IsInf(t.StepsPerSecond, 0) {
		return fmt.Errorf("%w: steps per second must be positive, got %v", ErrInvalidTiming, t.StepsPerSecond)
	}
	return nil
}

// H is the integration step size of a single sub-step.
func (t Timing) H() float64 {
	return t.StepSize / float64(t.SubSteps+1)
}

// Interval is the wall-clock time between emitted results, in milliseconds.
func (t Timing) Interval() float64 {
	return 1000 / t.StepsPerSecond
}
