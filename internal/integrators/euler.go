package integrators

import "github.com/san-kum/flowsim/internal/dynamo"

// Euler is the explicit first-order method y + h*f(y, x).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(f dynamo.Derivative, y dynamo.State, x, h float64) (dynamo.State, error) {
	dy, err := f(y, x)
	if err != nil {
		return nil, err
	}
	if len(dy) != len(y) {
		return nil, dynamo.ErrDimensionMismatch
	}
	result := make(dynamo.State, len(y))
	for i := range y {
		result[i] = y[i] + h*dy[i]
	}
	return result, nil
}
