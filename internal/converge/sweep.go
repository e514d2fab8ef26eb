package converge

import (
	"fmt"

	"github.com/san-kum/flowsim/internal/model"
)

// SweepPoint is the equilibrium reached for one parameter value.
type SweepPoint struct {
	Param      float64
	Timestamp  float64
	Record     model.Record
	Iterations int
}

// Curve holds both branches of a hysteresis sweep. Down is ordered from hi
// to lo.
type Curve struct {
	Up   []SweepPoint
	Down []SweepPoint
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	step := (hi - lo) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Sweep sets param to each value, converges and records the result. With
// carry each point starts from the previous equilibrium, which makes the
// sweep path dependent; otherwise every point starts from the initial
// record. The parameter's pre-sweep value is restored afterwards.
func (k *Seeker) Sweep(param string, values []float64, criterion Criterion, carry bool) ([]SweepPoint, error) {
	return k.sweep(param, values, criterion, func(i int) bool { return carry && i > 0 })
}

// Hysteresis sweeps param from lo to hi and back down in n steps per
// branch, carrying state throughout. The down branch continues from the top
// of the up branch.
func (k *Seeker) Hysteresis(param string, lo, hi float64, n int, criterion Criterion) (Curve, error) {
	up := Linspace(lo, hi, n)
	if len(up) == 0 {
		return Curve{}, fmt.Errorf("converge: need at least one sweep step, got %d", n)
	}
	down := make([]float64, len(up))
	for i, v := range up {
		down[len(up)-1-i] = v
	}

	var c Curve
	var err error
	if c.Up, err = k.sweep(param, up, criterion, func(i int) bool { return i > 0 }); err != nil {
		return c, err
	}
	c.Down, err = k.sweep(param, down, criterion, func(int) bool { return true })
	return c, err
}

func (k *Seeker) sweep(param string, values []float64, criterion Criterion, carry func(i int) bool) ([]SweepPoint, error) {
	m := k.sim.Model()
	p, ok := m.Parameter(param)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a parameter", model.ErrUnknownIdentifier, param)
	}
	if !p.Adjustable() {
		return nil, fmt.Errorf("converge: %q is a constant", param)
	}
	saved := p.Value()
	defer m.SetParameter(param, saved)

	points := make([]SweepPoint, 0, len(values))
	for i, v := range values {
		applied, _, err := m.SetParameter(param, v)
		if err != nil {
			return points, err
		}

		var pt Point
		if carry(i) {
			pt, err = k.Converge(criterion)
		} else {
			pt, err = k.ConvergeInitialRecord(criterion)
		}
		if err != nil {
			return points, fmt.Errorf("converge: %s=%g: %w", param, applied, err)
		}
		points = append(points, SweepPoint{
			Param:      applied,
			Timestamp:  pt.Timestamp,
			Record:     pt.Record,
			Iterations: k.iterations,
		})
	}
	return points, nil
}
