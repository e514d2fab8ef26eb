// Package model holds stock-and-flow model definitions and the graph
// evaluator that resolves flows, variables and constants at a given state.
package model

import (
	"fmt"
	"sort"

	"github.com/san-kum/flowsim/internal/dynamo"
)

// Lookup resolves the current value of an entity by id.
type Lookup func(id string) float64

// Equation computes a flow or variable. It must be pure for a fixed state and
// time.
type Equation func(stock, flow, variable, constant Lookup, t float64) float64

type Stock struct {
	ID       string
	Initial  float64
	Inflows  []string
	Outflows []string
}

type Flow struct {
	ID       string
	Equation Equation
}

type Variable struct {
	ID       string
	Equation Equation
}

// Constant declares a fixed value or, when Adjustable, a parameter that may be
// changed between evaluations within [Min, Max].
type Constant struct {
	ID         string
	Value      float64
	Min, Max   float64
	Adjustable bool
}

// Const declares an immutable constant.
func Const(id string, v float64) Constant {
	return Constant{ID: id, Value: v, Min: v, Max: v}
}

// Param declares an adjustable parameter with an initial value and range.
func Param(id string, initial, min, max float64) Constant {
	return Constant{ID: id, Value: initial, Min: min, Max: max, Adjustable: true}
}

type Kind uint8

const (
	KindStock Kind = iota
	KindFlow
	KindVariable
	KindConstant
)

func (k Kind) String() string {
	switch k {
	case KindStock:
		return "stock"
	case KindFlow:
		return "flow"
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type slot struct {
	kind Kind
	idx  int
}

// Model is an immutable graph of entities plus the live parameter cells.
type Model struct {
	stocks    []Stock
	flows     []Flow
	variables []Variable
	params    []*Parameter

	index    map[string]slot
	inflows  [][]int
	outflows [][]int

	listeners []*paramListener
}

// New validates the definition and builds the id index. Every id must be
// unique across all four collections and every stock inflow/outflow must name
// a declared flow.
func New(stocks []Stock, flows []Flow, variables []Variable, constants []Constant) (*Model, error) {
	m := &Model{
		stocks:    append([]Stock(nil), stocks...),
		flows:     append([]Flow(nil), flows...),
		variables: append([]Variable(nil), variables...),
		params:    make([]*Parameter, len(constants)),
		index:     make(map[string]slot, len(stocks)+len(flows)+len(variables)+len(constants)),
	}

	seen := make(map[string]bool)
	var dups []string
	add := func(id string, s slot) {
		if _, ok := m.index[id]; ok {
			if !seen[id] {
				seen[id] = true
				dups = append(dups, id)
			}
			return
		}
		m.index[id] = s
	}

	for i, s := range stocks {
		add(s.ID, slot{KindStock, i})
	}
	for i, f := range flows {
		add(f.ID, slot{KindFlow, i})
	}
	for i, v := range variables {
		add(v.ID, slot{KindVariable, i})
	}
	for i, c := range constants {
		add(c.ID, slot{KindConstant, i})
		m.params[i] = newParameter(c)
	}

	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, &DuplicateIdentifierError{IDs: dups}
	}

	for i, f := range flows {
		if f.Equation == nil {
			return nil, fmt.Errorf("model: flow %q has no equation", flows[i].ID)
		}
	}
	for i, v := range variables {
		if v.Equation == nil {
			return nil, fmt.Errorf("model: variable %q has no equation", variables[i].ID)
		}
	}

	m.inflows = make([][]int, len(stocks))
	m.outflows = make([][]int, len(stocks))
	for i, s := range stocks {
		in, err := m.flowSlots(s.ID, s.Inflows)
		if err != nil {
			return nil, err
		}
		out, err := m.flowSlots(s.ID, s.Outflows)
		if err != nil {
			return nil, err
		}
		m.inflows[i], m.outflows[i] = in, out
	}

	return m, nil
}

func (m *Model) flowSlots(stock string, ids []string) ([]int, error) {
	slots := make([]int, len(ids))
	for i, id := range ids {
		s, ok := m.index[id]
		if !ok || s.kind != KindFlow {
			return nil, fmt.Errorf("%w: stock %q references %q, which is not a flow", ErrUnknownIdentifier, stock, id)
		}
		slots[i] = s.idx
	}
	return slots, nil
}

func (m *Model) Stocks() []Stock       { return m.stocks }
func (m *Model) Flows() []Flow         { return m.flows }
func (m *Model) Variables() []Variable { return m.variables }
func (m *Model) Parameters() []*Parameter {
	return m.params
}

// Resolve returns the kind and slot of id.
func (m *Model) Resolve(id string) (Kind, int, bool) {
	s, ok := m.index[id]
	return s.kind, s.idx, ok
}

// InitialStocks returns a fresh vector of the declared initial stock values.
func (m *Model) InitialStocks() dynamo.State {
	x := make(dynamo.State, len(m.stocks))
	for i, s := range m.stocks {
		x[i] = s.Initial
	}
	return x
}

// NetRates sums, for every stock, its inflow values minus its outflow values.
func (m *Model) NetRates(flows []float64) dynamo.State {
	dx := make(dynamo.State, len(m.stocks))
	for i := range m.stocks {
		rate := 0.0
		for _, f := range m.inflows[i] {
			rate += flows[f]
		}
		for _, f := range m.outflows[i] {
			rate -= flows[f]
		}
		dx[i] = rate
	}
	return dx
}

// Columns lists every id in Record order: stocks, flows, variables, constants.
func (m *Model) Columns() []string {
	cols := make([]string, 0, len(m.index))
	for _, s := range m.stocks {
		cols = append(cols, s.ID)
	}
	for _, f := range m.flows {
		cols = append(cols, f.ID)
	}
	for _, v := range m.variables {
		cols = append(cols, v.ID)
	}
	for _, p := range m.params {
		cols = append(cols, p.id)
	}
	return cols
}
