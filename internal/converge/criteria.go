package converge

import (
	"fmt"
	"math"

	"github.com/san-kum/flowsim/internal/model"
)

// DeltaBelow holds when |value(current) - value(previous)| < tol for any
// stock, flow, variable or constant id.
func DeltaBelow(m *model.Model, id string, tol float64) (Criterion, error) {
	if _, _, ok := m.Resolve(id); !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownIdentifier, id)
	}
	if !(tol > 0) {
		return nil, fmt.Errorf("converge: tolerance must be positive, got %v", tol)
	}
	return func(cur, prev model.Record) bool {
		a, _ := m.Value(cur, id)
		b, _ := m.Value(prev, id)
		return math.Abs(a-b) < tol
	}, nil
}

// AllStocksBelow holds when every stock moved by less than tol.
func AllStocksBelow(tol float64) Criterion {
	return func(cur, prev model.Record) bool {
		for i := range cur.Stocks {
			if !(math.Abs(cur.Stocks[i]-prev.Stocks[i]) < tol) {
				return false
			}
		}
		return true
	}
}
