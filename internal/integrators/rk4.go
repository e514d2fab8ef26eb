package integrators

import "github.com/san-kum/flowsim/internal/dynamo"

// RK4 is the classical four-stage Runge-Kutta method. The scratch buffers are
// reused between steps, so an RK4 value must not be shared across goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) stage(dst dynamo.State, f dynamo.Derivative, y dynamo.State, x float64) error {
	k, err := f(y, x)
	if err != nil {
		return err
	}
	if len(k) != len(dst) {
		return dynamo.ErrDimensionMismatch
	}
	copy(dst, k)
	return nil
}

func (r *RK4) Step(f dynamo.Derivative, y dynamo.State, x, h float64) (dynamo.State, error) {
	n := len(y)
	r.ensureScratch(n)

	if err := r.stage(r.k1, f, y, x); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k1[i]
	}
	if err := r.stage(r.k2, f, r.scratch, x+h*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k2[i]
	}
	if err := r.stage(r.k3, f, r.scratch, x+h*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*r.k3[i]
	}
	if err := r.stage(r.k4, f, r.scratch, x+h); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	h6 := h / 6.0
	for i := 0; i < n; i++ {
		result[i] = y[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}
