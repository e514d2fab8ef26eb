package models

import (
	"math"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// NewBathtub fills a tub from a faucet while it drains through a hole whose
// outflow follows Torricelli's law. The level settles at (faucet/drain)².
func NewBathtub() (*model.Model, dynamo.Timing) {
	m := must(model.New(
		[]model.Stock{{ID: "level", Inflows: []string{"fill"}, Outflows: []string{"drain"}}},
		[]model.Flow{
			{ID: "fill", Equation: eq(func(l lookups, _ float64) float64 { return l.constant("faucet") })},
			{ID: "drain", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("drain_coefficient") * math.Sqrt(math.Max(l.stock("level"), 0))
			})},
		},
		nil,
		[]model.Constant{
			model.Param("faucet", 2, 0, 10),
			model.Param("drain_coefficient", 0.5, 0.1, 2),
		},
	))
	return m, dynamo.Timing{StepSize: 0.5, SubSteps: 1, StepsPerSecond: 20}
}
