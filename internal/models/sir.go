package models

import (
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// NewSIR is the Kermack-McKendrick epidemic in days. Population is
// conserved: infection moves people from susceptible to infected and
// recovery from infected to recovered.
func NewSIR() (*model.Model, dynamo.Timing) {
	m := must(model.New(
		[]model.Stock{
			{ID: "susceptible", Initial: 990, Outflows: []string{"infection"}},
			{ID: "infected", Initial: 10, Inflows: []string{"infection"}, Outflows: []string{"recovery"}},
			{ID: "recovered", Inflows: []string{"recovery"}},
		},
		[]model.Flow{
			{ID: "infection", Equation: eq(func(l lookups, _ float64) float64 {
				return l.variable("force") * l.stock("susceptible")
			})},
			{ID: "recovery", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("gamma") * l.stock("infected")
			})},
		},
		[]model.Variable{
			{ID: "population", Equation: eq(func(l lookups, _ float64) float64 {
				return l.stock("susceptible") + l.stock("infected") + l.stock("recovered")
			})},
			{ID: "force", Equation: eq(func(l lookups, _ float64) float64 {
				n := l.variable("population")
				if n <= 0 {
					return 0
				}
				return l.constant("beta") * l.stock("infected") / n
			})},
			{ID: "r0", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("beta") / l.constant("gamma")
			})},
		},
		[]model.Constant{
			model.Param("beta", 0.3, 0, 2),
			model.Param("gamma", 0.1, 0.01, 1),
		},
	))
	return m, dynamo.Timing{StepSize: 0.5, SubSteps: 1, StepsPerSecond: 20}
}
