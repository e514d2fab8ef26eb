package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/flowsim/internal/model"
)

func rec(stocks, flows []float64) model.Record {
	return model.Record{Stocks: stocks, Flows: flows}
}

func TestTotalStock(t *testing.T) {
	m := NewTotalStock()
	m.Observe(rec([]float64{1, 2}, nil))
	m.Observe(rec([]float64{3, 4}, nil))

	if math.Abs(m.Value()-5) > 1e-12 {
		t.Errorf("expected mean total 5, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestStockDrift(t *testing.T) {
	m := NewStockDrift()
	m.Observe(rec([]float64{990, 10, 0}, nil))
	m.Observe(rec([]float64{900, 95, 5}, nil))
	if m.Value() != 0 {
		t.Errorf("expected no drift for a conserved total, got %g", m.Value())
	}

	m.Observe(rec([]float64{900, 95, 15}, nil))
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("expected drift 0.01, got %g", m.Value())
	}

	m.Observe(rec([]float64{900, 95, 5}, nil))
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("drift should keep its maximum, got %g", m.Value())
	}
}

func TestThroughput(t *testing.T) {
	m := NewThroughput()
	m.Observe(rec(nil, []float64{100, -10}))
	m.Observe(rec(nil, []float64{50, 0}))

	if math.Abs(m.Value()-80) > 1e-12 {
		t.Errorf("expected throughput 80, got %f", m.Value())
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name    string
		records []model.Record
		want    float64
	}{
		{"empty", nil, 1},
		{"bounded", []model.Record{rec([]float64{1}, nil), rec([]float64{-5}, nil)}, 1},
		{"one escape", []model.Record{rec([]float64{1, 2}, nil), rec([]float64{1, 20}, nil)}, 0.5},
		{"nan", []model.Record{rec([]float64{math.NaN()}, nil)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(10)
			for _, r := range tt.records {
				m.Observe(r)
			}
			if m.Value() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, m.Value())
			}
		})
	}
}

func testModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(
		[]model.Stock{{ID: "s", Inflows: []string{"f"}}},
		[]model.Flow{{ID: "f", Equation: func(_, _, _, _ model.Lookup, _ float64) float64 { return 1 }}},
		[]model.Variable{{ID: "v", Equation: func(_, _, _, _ model.Lookup, _ float64) float64 { return 0 }}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPeakAndFinal(t *testing.T) {
	m := testModel(t)

	if _, err := NewPeak(m, "missing"); err == nil {
		t.Error("expected error for unknown id")
	}

	peak, err := NewPeak(m, "v")
	if err != nil {
		t.Fatal(err)
	}
	final, err := NewFinal(m, "v")
	if err != nil {
		t.Fatal(err)
	}
	if peak.Name() != "peak_v" || final.Name() != "final_v" {
		t.Errorf("unexpected names %s %s", peak.Name(), final.Name())
	}

	for _, v := range []float64{-3, -1, math.NaN(), -2} {
		r := model.Record{Stocks: []float64{0}, Flows: []float64{0}, Variables: []float64{v}}
		peak.Observe(r)
		final.Observe(r)
	}

	if peak.Value() != -1 {
		t.Errorf("expected peak -1, got %v", peak.Value())
	}
	if final.Value() != -2 {
		t.Errorf("expected final -2, got %v", final.Value())
	}
}
