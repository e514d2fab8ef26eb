// Package converge relaxes a model to steady state and sweeps parameters
// across equilibria.
package converge

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/sim"
)

// DefaultMaxIterations bounds a single Converge call.
const DefaultMaxIterations = 100000

var ErrConvergenceTimeout = errors.New("converge: criterion not met")

// Criterion reports whether the system has settled between two consecutive
// records.
type Criterion func(current, previous model.Record) bool

// Point is a converged record and the wall-clock timestamp it would have
// been emitted at.
type Point struct {
	Timestamp float64
	Record    model.Record
}

// Seeker steps a simulator until a criterion holds. It keeps the last
// converged point so successive calls continue from it.
//
// Each iteration is one emitted step (Simulator.Advance, SubSteps+1 chained
// StepExt calls), so the criterion compares records Timing.StepSize apart,
// not Timing.H() apart. With SubSteps = 0 the two coincide.
type Seeker struct {
	sim    *sim.Simulator
	timing dynamo.Timing

	MaxIterations int

	current    Point
	hasCurrent bool
	iterations int
}

func New(s *sim.Simulator, timing dynamo.Timing) (*Seeker, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	return &Seeker{sim: s, timing: timing, MaxIterations: DefaultMaxIterations}, nil
}

func (k *Seeker) Simulator() *sim.Simulator { return k.sim }

// Current returns the point the next Converge starts from.
func (k *Seeker) Current() (Point, bool) {
	return k.current, k.hasCurrent
}

// SetCurrent moves the seeker to p, typically the stepper's last result.
func (k *Seeker) SetCurrent(p Point) {
	k.current = Point{Timestamp: p.Timestamp, Record: p.Record.Clone()}
	k.hasCurrent = true
}

// Iterations is the number of steps the last Converge call took.
func (k *Seeker) Iterations() int {
	return k.iterations
}

// Converge steps from the current point until criterion(current, previous)
// holds. A seeker without a current point starts from the initial record.
// On failure the current point is left unchanged.
func (k *Seeker) Converge(criterion Criterion) (Point, error) {
	if !k.hasCurrent {
		return k.ConvergeInitialRecord(criterion)
	}
	return k.run(k.current, criterion)
}

// ConvergeInitialRecord seeds the search from the declared initial stocks
// at t=0.
func (k *Seeker) ConvergeInitialRecord(criterion Criterion) (Point, error) {
	rec, err := k.sim.InitialRecord()
	if err != nil {
		return Point{}, err
	}
	return k.run(Point{Record: rec}, criterion)
}

func (k *Seeker) run(start Point, criterion Criterion) (Point, error) {
	limit := k.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	interval := k.timing.Interval()

	prev := start
	for i := 1; i <= limit; i++ {
		rec, err := k.sim.Advance(prev.Record, k.timing)
		if err != nil {
			k.iterations = i
			return Point{}, err
		}
		cur := Point{Timestamp: prev.Timestamp + interval, Record: rec}
		if criterion(cur.Record, prev.Record) {
			k.iterations = i
			k.current, k.hasCurrent = cur, true
			logrus.WithFields(logrus.Fields{"iterations": i, "time": rec.Time}).Debug("converged")
			return cur, nil
		}
		prev = cur
	}
	k.iterations = limit
	return Point{}, fmt.Errorf("%w after %d iterations (t=%.4f)", ErrConvergenceTimeout, limit, prev.Record.Time)
}
