// Package models is the catalogue of built-in stock-and-flow models.
package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// Definition describes a built-in model. Focus is the id that convergence
// and plots default to; Sweep is the parameter sweeps default to.
type Definition struct {
	Name        string
	Description string
	Focus       string
	Sweep       string
	Build       func() (*model.Model, dynamo.Timing)
}

var catalogue = map[string]Definition{
	"heat": {
		Name:        "heat",
		Description: "constant heating against proportional loss",
		Focus:       "heat",
		Sweep:       "loss",
		Build:       NewHeat,
	},
	"climate": {
		Name:        "climate",
		Description: "energy balance with ice-albedo feedback",
		Focus:       "temperature",
		Sweep:       "solar",
		Build:       NewClimate,
	},
	"sir": {
		Name:        "sir",
		Description: "susceptible-infected-recovered epidemic",
		Focus:       "infected",
		Sweep:       "beta",
		Build:       NewSIR,
	},
	"predator_prey": {
		Name:        "predator_prey",
		Description: "Lotka-Volterra predator and prey",
		Focus:       "prey",
		Sweep:       "predation",
		Build:       NewPredatorPrey,
	},
	"bathtub": {
		Name:        "bathtub",
		Description: "faucet inflow against a gravity drain",
		Focus:       "level",
		Sweep:       "faucet",
		Build:       NewBathtub,
	},
}

// Lookup returns the named definition.
func Lookup(name string) (Definition, error) {
	d, ok := catalogue[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown model: %s", name)
	}
	return d, nil
}

// Names lists the catalogue in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// must panics on a construction error in a built-in definition.
func must(m *model.Model, err error) *model.Model {
	if err != nil {
		panic(fmt.Sprintf("models: %v", err))
	}
	return m
}

type lookups struct {
	stock, flow, variable, constant model.Lookup
}

// eq lets an equation body read its four lookups by name.
func eq(fn func(l lookups, t float64) float64) model.Equation {
	return func(s, f, v, c model.Lookup, t float64) float64 {
		return fn(lookups{s, f, v, c}, t)
	}
}
