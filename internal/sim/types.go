package sim

import (
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

// Metric accumulates a scalar over the records of a run.
type Metric interface {
	Name() string
	Observe(rec model.Record)
	Value() float64
	Reset()
}

type Observer interface {
	OnRecord(rec model.Record)
}

// MaxSteps bounds the number of emitted steps a single run may take.
const MaxSteps = 1 << 30

// maxPrealloc caps the record capacity reserved up front.
const maxPrealloc = 1 << 16

type Config struct {
	Timing        dynamo.Timing
	Duration      float64
	ValidateState bool
}

// steps is the number of emitted steps that fit in Duration.
func (c Config) steps() int {
	return int(c.Duration/c.Timing.StepSize + 1e-9)
}

func DefaultConfig() Config {
	return Config{
		Timing:        dynamo.DefaultTiming(),
		Duration:      100,
		ValidateState: true,
	}
}

type Result struct {
	Records    []model.Record
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Final returns the last record of the run.
func (r *Result) Final() (model.Record, bool) {
	if len(r.Records) == 0 {
		return model.Record{}, false
	}
	return r.Records[len(r.Records)-1], true
}
