package metrics

import (
	"math"

	"github.com/san-kum/flowsim/internal/model"
)

// Throughput is the mean total absolute flow rate per record.
type Throughput struct {
	name    string
	sum     float64
	samples int
}

func NewThroughput() *Throughput {
	return &Throughput{
		name: "throughput",
	}
}

func (c *Throughput) Name() string {
	return c.name
}

func (c *Throughput) Observe(rec model.Record) {
	for _, val := range rec.Flows {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *Throughput) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *Throughput) Reset() {
	c.sum = 0
	c.samples = 0
}
