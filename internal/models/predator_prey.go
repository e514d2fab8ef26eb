package models

import (
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// NewPredatorPrey is the Lotka-Volterra system. Orbits are closed, so it
// never settles to a fixed point away from equilibrium.
func NewPredatorPrey() (*model.Model, dynamo.Timing) {
	m := must(model.New(
		[]model.Stock{
			{ID: "prey", Initial: 40, Inflows: []string{"prey_births"}, Outflows: []string{"prey_deaths"}},
			{ID: "predators", Initial: 9, Inflows: []string{"predator_births"}, Outflows: []string{"predator_deaths"}},
		},
		[]model.Flow{
			{ID: "prey_births", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("prey_growth") * l.stock("prey")
			})},
			{ID: "prey_deaths", Equation: eq(func(l lookups, _ float64) float64 {
				return l.variable("encounters") * l.constant("predation")
			})},
			{ID: "predator_births", Equation: eq(func(l lookups, _ float64) float64 {
				return l.variable("encounters") * l.constant("efficiency")
			})},
			{ID: "predator_deaths", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("predator_death") * l.stock("predators")
			})},
		},
		[]model.Variable{
			{ID: "encounters", Equation: eq(func(l lookups, _ float64) float64 {
				return l.stock("prey") * l.stock("predators")
			})},
		},
		[]model.Constant{
			model.Param("prey_growth", 0.1, 0, 1),
			model.Param("predation", 0.02, 0, 0.1),
			model.Param("efficiency", 0.01, 0, 0.1),
			model.Param("predator_death", 0.1, 0, 1),
		},
	))
	return m, dynamo.Timing{StepSize: 0.1, SubSteps: 4, StepsPerSecond: 30}
}
