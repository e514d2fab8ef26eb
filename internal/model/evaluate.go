package model

import (
	"fmt"
	"math"

	"github.com/san-kum/flowsim/internal/dynamo"
)

type resolution uint8

const (
	unresolved resolution = iota
	inProgress
	resolved
)

type cell struct {
	state resolution
	value float64
}

// Evaluator resolves every flow and variable of a model at a fixed state and
// time. It reuses its slot buffers between calls and is not safe for
// concurrent use.
type Evaluator struct {
	m *Model

	flows     []cell
	variables []cell
	constants []float64
	stocks    dynamo.State
	t         float64
	err       error

	stockFn, flowFn, variableFn, constantFn Lookup
}

func NewEvaluator(m *Model) *Evaluator {
	e := &Evaluator{
		m:         m,
		flows:     make([]cell, len(m.flows)),
		variables: make([]cell, len(m.variables)),
		constants: make([]float64, len(m.params)),
	}
	e.stockFn = e.stock
	e.flowFn = e.flow
	e.variableFn = e.variable
	e.constantFn = e.constant
	return e
}

// Evaluate is the one-shot form of Evaluator.Evaluate.
func Evaluate(m *Model, stocks dynamo.State, t float64) (Record, error) {
	return NewEvaluator(m).Evaluate(stocks, t)
}

// Evaluate computes every flow and variable at (stocks, t). Parameter values
// are read once at the start of the call. The returned record owns its
// slices; Stocks is a copy of the input.
func (e *Evaluator) Evaluate(stocks dynamo.State, t float64) (Record, error) {
	if len(stocks) != len(e.m.stocks) {
		return Record{}, fmt.Errorf("%w: %d stock values for %d stocks", dynamo.ErrDimensionMismatch, len(stocks), len(e.m.stocks))
	}

	e.stocks = stocks
	e.t = t
	e.err = nil
	for i := range e.flows {
		e.flows[i] = cell{}
	}
	for i := range e.variables {
		e.variables[i] = cell{}
	}
	for i, p := range e.m.params {
		e.constants[i] = p.value
	}

	for i := range e.variables {
		e.resolveVariable(i)
	}
	for i := range e.flows {
		e.resolveFlow(i)
	}

	e.stocks = nil
	if e.err != nil {
		return Record{}, e.err
	}

	rec := Record{
		Time:      t,
		Stocks:    stocks.Clone(),
		Flows:     make([]float64, len(e.flows)),
		Variables: make([]float64, len(e.variables)),
		Constants: append([]float64(nil), e.constants...),
	}
	for i, c := range e.flows {
		rec.Flows[i] = c.value
	}
	for i, c := range e.variables {
		rec.Variables[i] = c.value
	}
	return rec, nil
}

func (e *Evaluator) fail(err error) float64 {
	if e.err == nil {
		e.err = err
	}
	return math.NaN()
}

func (e *Evaluator) slot(id string, want Kind) (int, bool) {
	s, ok := e.m.index[id]
	if !ok || s.kind != want {
		e.fail(fmt.Errorf("%w: %q is not a %s", ErrUnknownIdentifier, id, want))
		return 0, false
	}
	return s.idx, true
}

func (e *Evaluator) stock(id string) float64 {
	i, ok := e.slot(id, KindStock)
	if !ok {
		return math.NaN()
	}
	return e.stocks[i]
}

func (e *Evaluator) constant(id string) float64 {
	i, ok := e.slot(id, KindConstant)
	if !ok {
		return math.NaN()
	}
	return e.constants[i]
}

func (e *Evaluator) flow(id string) float64 {
	i, ok := e.slot(id, KindFlow)
	if !ok {
		return math.NaN()
	}
	return e.resolveFlow(i)
}

func (e *Evaluator) variable(id string) float64 {
	i, ok := e.slot(id, KindVariable)
	if !ok {
		return math.NaN()
	}
	return e.resolveVariable(i)
}

func (e *Evaluator) resolveFlow(i int) float64 {
	return e.resolve(&e.flows[i], e.m.flows[i].ID, e.m.flows[i].Equation)
}

func (e *Evaluator) resolveVariable(i int) float64 {
	return e.resolve(&e.variables[i], e.m.variables[i].ID, e.m.variables[i].Equation)
}

func (e *Evaluator) resolve(c *cell, id string, eq Equation) float64 {
	switch c.state {
	case resolved:
		return c.value
	case inProgress:
		return e.fail(&CycleError{ID: id})
	}
	if e.err != nil {
		return math.NaN()
	}
	c.state = inProgress
	v := eq(e.stockFn, e.flowFn, e.variableFn, e.constantFn, e.t)
	c.value = v
	c.state = resolved
	return v
}
