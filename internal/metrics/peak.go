package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/flowsim/internal/model"
)

// Peak tracks the largest value of one model quantity.
type Peak struct {
	name string
	m    *model.Model
	id   string
	peak float64
	seen bool
}

func NewPeak(m *model.Model, id string) (*Peak, error) {
	if _, _, ok := m.Resolve(id); !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownIdentifier, id)
	}
	return &Peak{name: "peak_" + id, m: m, id: id}, nil
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(rec model.Record) {
	v, ok := p.m.Value(rec, p.id)
	if !ok || math.IsNaN(v) {
		return
	}
	if !p.seen || v > p.peak {
		p.peak = v
		p.seen = true
	}
}

func (p *Peak) Value() float64 {
	return p.peak
}

func (p *Peak) Reset() {
	p.peak = 0
	p.seen = false
}

// Final reports the last observed value of one model quantity.
type Final struct {
	name  string
	m     *model.Model
	id    string
	value float64
}

func NewFinal(m *model.Model, id string) (*Final, error) {
	if _, _, ok := m.Resolve(id); !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownIdentifier, id)
	}
	return &Final{name: "final_" + id, m: m, id: id}, nil
}

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(rec model.Record) {
	if v, ok := f.m.Value(rec, f.id); ok {
		f.value = v
	}
}

func (f *Final) Value() float64 { return f.value }

func (f *Final) Reset() { f.value = 0 }
