package integrators

import (
	"testing"

	"github.com/san-kum/flowsim/internal/dynamo"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(oscillator, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(oscillator, x, 0, 0.01)
	}
}

func chain(y dynamo.State, _ float64) (dynamo.State, error) {
	dx := make(dynamo.State, len(y))
	for i := range y {
		in := 1.0
		if i > 0 {
			in = 0.1 * y[i-1]
		}
		dx[i] = in - 0.1*y[i]
	}
	return dx, nil
}

func BenchmarkRK4_Chain20(b *testing.B) {
	integrator := NewRK4()
	x := make(dynamo.State, 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integrator.Step(chain, x, 0, 0.1)
	}
}
