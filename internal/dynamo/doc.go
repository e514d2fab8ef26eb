// Package dynamo provides the numerical primitives shared by the flowsim
// engine.
//
// The package defines the contracts every other package builds on:
//
//   - [State]: vector of stock values
//   - [Derivative]: net rate of change of a state at a point in time
//   - [Integrator]: fixed-step strategy advancing a state by one step
//   - [Timing]: step size, sub-steps and emission cadence of a model
//   - [SimulationError]: failure annotated with the time and state it occurred at
//
// # Example
//
//	integ := integrators.NewRK4()
//	next, err := integ.Step(deriv, dynamo.State{0}, 0, 1)
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation; the engine is
// single-threaded and cooperative.
package dynamo
