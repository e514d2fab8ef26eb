package metrics

import (
	"math"

	"github.com/san-kum/flowsim/internal/model"
)

func total(xs []float64) float64 {
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum
}

// TotalStock is the mean over records of the summed stock values.
type TotalStock struct {
	name    string
	sum     float64
	samples int
}

func NewTotalStock() *TotalStock {
	return &TotalStock{name: "total_stock"}
}

func (s *TotalStock) Name() string { return s.name }

func (s *TotalStock) Observe(rec model.Record) {
	s.sum += total(rec.Stocks)
	s.samples++
}

func (s *TotalStock) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *TotalStock) Reset() {
	s.sum = 0
	s.samples = 0
}

// StockDrift is the largest relative change of the summed stocks from the
// first observed record. Closed models, where every flow moves material
// between stocks, should keep it near zero.
type StockDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewStockDrift() *StockDrift {
	return &StockDrift{name: "stock_drift"}
}

func (d *StockDrift) Name() string { return d.name }

func (d *StockDrift) Observe(rec model.Record) {
	sum := total(rec.Stocks)
	if d.samples == 0 {
		d.initial = sum
	}
	d.samples++

	if d.initial != 0 {
		drift := math.Abs(sum-d.initial) / math.Abs(d.initial)
		d.maxDrift = math.Max(d.maxDrift, drift)
	}
}

func (d *StockDrift) Value() float64 {
	return d.maxDrift
}

func (d *StockDrift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
}
