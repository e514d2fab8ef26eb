package model

import (
	"fmt"
	"math"
)

// Parameter is the live value cell behind a declared constant. Values only
// change through Model.SetParameter and Model.ResetParameters so that change
// notifications have a single origin.
type Parameter struct {
	id         string
	value      float64
	initial    float64
	min, max   float64
	adjustable bool
}

func newParameter(c Constant) *Parameter {
	lo, hi := c.Min, c.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if !c.Adjustable {
		lo, hi = c.Value, c.Value
	}
	return &Parameter{
		id:         c.ID,
		value:      c.Value,
		initial:    c.Value,
		min:        lo,
		max:        hi,
		adjustable: c.Adjustable,
	}
}

func (p *Parameter) ID() string                { return p.id }
func (p *Parameter) Value() float64            { return p.value }
func (p *Parameter) Initial() float64          { return p.initial }
func (p *Parameter) Range() (float64, float64) { return p.min, p.max }
func (p *Parameter) Adjustable() bool          { return p.adjustable }

func (p *Parameter) set(v float64) (float64, bool) {
	v = math.Max(p.min, math.Min(p.max, v))
	if v == p.value {
		return v, false
	}
	p.value = v
	return v, true
}

type paramListener struct {
	fn func(id string, value float64)
}

// OnParameterChange registers fn to be called after a parameter's value
// actually changes. The returned func removes it again.
func (m *Model) OnParameterChange(fn func(id string, value float64)) (cancel func()) {
	l := &paramListener{fn: fn}
	m.listeners = append(m.listeners, l)
	return func() {
		for i, x := range m.listeners {
			if x == l {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Parameter returns the cell for a constant or parameter id.
func (m *Model) Parameter(id string) (*Parameter, bool) {
	s, ok := m.index[id]
	if !ok || s.kind != KindConstant {
		return nil, false
	}
	return m.params[s.idx], true
}

// SetParameter clamps v into the parameter's range and stores it. Listeners
// are notified only when the stored value changes. Setting a fixed constant
// fails.
func (m *Model) SetParameter(id string, v float64) (float64, bool, error) {
	p, ok := m.Parameter(id)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q is not a parameter", ErrUnknownIdentifier, id)
	}
	if !p.adjustable {
		return p.value, false, fmt.Errorf("model: %q is a constant", id)
	}
	if math.IsNaN(v) {
		return p.value, false, fmt.Errorf("model: parameter %q: value is NaN", id)
	}
	nv, changed := p.set(v)
	if changed {
		for _, l := range m.listeners {
			l.fn(id, nv)
		}
	}
	return nv, changed, nil
}

// RebaseParameters makes every parameter's current value the one
// ResetParameters restores.
func (m *Model) RebaseParameters() {
	for _, p := range m.params {
		p.initial = p.value
	}
}

// ResetParameters restores every parameter to its initial value without
// emitting change notifications.
func (m *Model) ResetParameters() {
	for _, p := range m.params {
		p.value = p.initial
	}
}
