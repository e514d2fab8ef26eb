package models

import (
	"math"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

const (
	solarConstant = 1361.0      // W/m^2
	stefan        = 5.670374e-8 // W/m^2/K^4

	iceAlbedo   = 0.6
	oceanAlbedo = 0.3
	iceLine     = 265.0 // K, fully frozen below
	thawLine    = 285.0 // K, ice free above
)

// Albedo ramps linearly from ice to ocean reflectivity between iceLine and
// thawLine.
func Albedo(temperature float64) float64 {
	switch {
	case temperature <= iceLine:
		return iceAlbedo
	case temperature >= thawLine:
		return oceanAlbedo
	}
	frac := (temperature - iceLine) / (thawLine - iceLine)
	return iceAlbedo + frac*(oceanAlbedo-iceAlbedo)
}

// NewClimate is a zero-dimensional energy balance model. Time is in years
// and heat_capacity in W·yr/m²/K. With the default solar multiplier both a
// warm (~288 K) and a snowball (~250 K) equilibrium are stable, so sweeping
// solar up and back down traces a hysteresis loop.
func NewClimate() (*model.Model, dynamo.Timing) {
	m := must(model.New(
		[]model.Stock{{ID: "temperature", Initial: 288, Inflows: []string{"warming"}, Outflows: []string{"cooling"}}},
		[]model.Flow{
			{ID: "warming", Equation: eq(func(l lookups, _ float64) float64 {
				return l.variable("absorbed") / l.constant("heat_capacity")
			})},
			{ID: "cooling", Equation: eq(func(l lookups, _ float64) float64 {
				return l.variable("emitted") / l.constant("heat_capacity")
			})},
		},
		[]model.Variable{
			{ID: "albedo", Equation: eq(func(l lookups, _ float64) float64 {
				return Albedo(l.stock("temperature"))
			})},
			{ID: "absorbed", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("solar") * l.constant("solar_constant") / 4 * (1 - l.variable("albedo"))
			})},
			{ID: "emitted", Equation: eq(func(l lookups, _ float64) float64 {
				return l.constant("emissivity") * stefan * math.Pow(l.stock("temperature"), 4)
			})},
		},
		[]model.Constant{
			model.Const("solar_constant", solarConstant),
			model.Param("solar", 1, 0.8, 1.4),
			model.Param("heat_capacity", 10, 1, 100),
			model.Param("emissivity", 0.612, 0.5, 1),
		},
	))
	return m, dynamo.Timing{StepSize: 1, SubSteps: 3, StepsPerSecond: 30}
}
