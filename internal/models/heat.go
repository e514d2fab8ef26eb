package models

import (
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// NewHeat is a body heated at a constant rate and losing heat in proportion
// to what it holds. The steady state is 100/loss.
func NewHeat() (*model.Model, dynamo.Timing) {
	m := must(model.New(
		[]model.Stock{{ID: "heat", Inflows: []string{"in"}, Outflows: []string{"out"}}},
		[]model.Flow{
			{ID: "in", Equation: eq(func(l lookups, _ float64) float64 { return l.constant("power") })},
			{ID: "out", Equation: eq(func(l lookups, _ float64) float64 { return l.constant("loss") * l.stock("heat") })},
		},
		nil,
		[]model.Constant{
			model.Const("power", 100),
			model.Param("loss", 0.1, 0, 1),
		},
	))
	return m, dynamo.Timing{StepSize: 1, SubSteps: 0, StepsPerSecond: 10}
}
