package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidTiming indicates a degenerate step size, sub-step count or cadence.
	ErrInvalidTiming = errors.New("dynamo: invalid timing configuration")

	// ErrDimensionMismatch indicates a derivative whose length differs from the state.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and derivative")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("t=%.4f: %v", e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
