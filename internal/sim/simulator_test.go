package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/model"
)

func newHeat(t *testing.T, loss float64) *model.Model {
	t.Helper()
	m, err := model.New(
		[]model.Stock{{ID: "heat", Inflows: []string{"in"}, Outflows: []string{"out"}}},
		[]model.Flow{
			{ID: "in", Equation: func(_, _, _, _ model.Lookup, _ float64) float64 { return 100 }},
			{ID: "out", Equation: func(s, _, _, c model.Lookup, _ float64) float64 { return c("loss") * s("heat") }},
		},
		nil,
		[]model.Constant{model.Param("loss", loss, 0, 1)},
	)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return m
}

func TestStepExtHeat(t *testing.T) {
	tests := []struct {
		name    string
		loss    float64
		wantY   float64
		wantOut float64
	}{
		// k = [100, 95, 95.25, 90.475] -> 570.975/6
		{"loss 0.1", 0.1, 95.1625, 9.51625},
		{"loss 0.05", 0.05, 97.541146, 4.877057},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(newHeat(t, tt.loss), integrators.NewRK4())

			rec, err := s.StepExt(dynamo.State{0}, 0, 1)
			if err != nil {
				t.Fatalf("step failed: %v", err)
			}

			if rec.Time != 1 {
				t.Errorf("expected time 1, got %v", rec.Time)
			}
			if math.Abs(rec.Stocks[0]-tt.wantY) > 1e-5 {
				t.Errorf("expected heat %.6f, got %.6f", tt.wantY, rec.Stocks[0])
			}
			if len(rec.Flows) != 2 || rec.Flows[0] != 100 || math.Abs(rec.Flows[1]-tt.wantOut) > 1e-5 {
				t.Errorf("expected flows [100 %.6f], got %v", tt.wantOut, rec.Flows)
			}

			exact := 100 / tt.loss * (1 - math.Exp(-tt.loss))
			if math.Abs(rec.Stocks[0]-exact) > 1e-2 {
				t.Errorf("rk4 step %.6f too far from exact %.6f", rec.Stocks[0], exact)
			}
		})
	}
}

func TestStepMatchesStepExt(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())

	x, err := s.Step(dynamo.State{10}, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.StepExt(dynamo.State{10}, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != rec.Stocks[0] {
		t.Errorf("Step %v != StepExt %v", x[0], rec.Stocks[0])
	}
}

func TestStepExtCycle(t *testing.T) {
	m, err := model.New(
		[]model.Stock{{ID: "s", Inflows: []string{"f"}}},
		[]model.Flow{{ID: "f", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("A") }}},
		[]model.Variable{
			{ID: "A", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("B") }},
			{ID: "B", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("A") }},
		},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	s := New(m, integrators.NewRK4())
	_, err = s.StepExt(dynamo.State{0}, 0, 1)
	if !errors.Is(err, model.ErrEvaluationCycle) {
		t.Fatalf("expected evaluation cycle, got %v", err)
	}

	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %T", err)
	}
	var cyc *model.CycleError
	if !errors.As(err, &cyc) || (cyc.ID != "A" && cyc.ID != "B") {
		t.Errorf("expected cycle at A or B, got %v", err)
	}
}

func TestSetIntegrator(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())
	if s.Integrator().Name() != "rk4" {
		t.Fatalf("unexpected integrator %s", s.Integrator().Name())
	}

	s.SetIntegrator(integrators.NewEuler())
	rec, err := s.StepExt(dynamo.State{0}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Stocks[0] != 100 {
		t.Errorf("euler step expected 100, got %v", rec.Stocks[0])
	}
}

func TestAdvanceSubSteps(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())
	timing := dynamo.Timing{StepSize: 1, SubSteps: 3, StepsPerSecond: 10}

	start, err := s.InitialRecord()
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Advance(start, timing)
	if err != nil {
		t.Fatal(err)
	}

	want := start
	for i := 0; i < 4; i++ {
		want, err = s.StepExt(want.Stocks, want.Time, 0.25)
		if err != nil {
			t.Fatal(err)
		}
	}

	if got.Time != 1 || want.Time != 1 {
		t.Errorf("expected time 1, got %v and %v", got.Time, want.Time)
	}
	if got.Stocks[0] != want.Stocks[0] {
		t.Errorf("advance %v != chained %v", got.Stocks[0], want.Stocks[0])
	}
}

func TestSimulatorRun(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())

	cfg := Config{
		Timing:   dynamo.Timing{StepSize: 1, StepsPerSecond: 60},
		Duration: 10,
	}

	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Records) != 11 {
		t.Errorf("expected 11 records, got %d", len(result.Records))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}

	final, _ := result.Final()
	expected := 1000 * (1 - math.Exp(-1))
	if math.Abs(final.Stocks[0]-expected) > 1e-2 {
		t.Errorf("expected final heat ~%.4f, got %.4f", expected, final.Stocks[0])
	}
	if math.Abs(final.Time-10) > 1e-9 {
		t.Errorf("expected final time 10, got %v", final.Time)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero step", Config{Timing: dynamo.Timing{StepSize: 0, StepsPerSecond: 1}, Duration: 1.0}},
		{"negative step", Config{Timing: dynamo.Timing{StepSize: -0.1, StepsPerSecond: 1}, Duration: 1.0}},
		{"negative sub-steps", Config{Timing: dynamo.Timing{StepSize: 1, SubSteps: -1, StepsPerSecond: 1}, Duration: 1.0}},
		{"zero cadence", Config{Timing: dynamo.Timing{StepSize: 1}, Duration: 1.0}},
		{"zero duration", Config{Timing: dynamo.DefaultTiming(), Duration: 0}},
		{"infinite duration", Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 60}, Duration: math.Inf(1)}},
		{"NaN duration", Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 60}, Duration: math.NaN()}},
		{"too many steps", Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 60}, Duration: 1e13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(rec model.Record) {
	t.count++
	t.sum += rec.Stocks[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type recorder struct{ times []float64 }

func (r *recorder) OnRecord(rec model.Record) { r.times = append(r.times, rec.Time) }

func TestSimulatorMetrics(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())

	metric := &testMetric{}
	s.AddMetric(metric)
	obs := &recorder{}
	s.AddObserver(obs)

	cfg := Config{Timing: dynamo.Timing{StepSize: 0.5, StepsPerSecond: 60}, Duration: 5}
	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
	if len(obs.times) != 11 || obs.times[0] != 0 {
		t.Errorf("unexpected observed times %v", obs.times)
	}
}

func TestSimulatorStopsOnInvalidState(t *testing.T) {
	m, err := model.New(
		[]model.Stock{{ID: "s", Inflows: []string{"f"}}},
		[]model.Flow{{ID: "f", Equation: func(_, _, _, _ model.Lookup, t float64) float64 {
			if t > 2 {
				return math.Inf(1)
			}
			return 1
		}}},
		nil,
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	s := New(m, integrators.NewEuler())
	cfg := Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 1}, Duration: 10, ValidateState: true}
	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Errors) != 1 || !errors.Is(result.Errors[0], dynamo.ErrInvalidState) {
		t.Fatalf("expected one invalid state error, got %v", result.Errors)
	}
	if result.StepsTaken != 3 {
		t.Errorf("expected 3 steps before divergence, got %d", result.StepsTaken)
	}
}

func TestSimulatorRunCanceled(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, Config{Timing: dynamo.DefaultTiming(), Duration: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Records) != 1 {
		t.Errorf("expected only the initial record, got %d", len(result.Records))
	}
}

func TestRunWithCallback(t *testing.T) {
	s := New(newHeat(t, 0.1), integrators.NewRK4())

	var seen []float64
	err := s.RunWithCallback(context.Background(), Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 1}, Duration: 100},
		func(rec model.Record) bool {
			seen = append(seen, rec.Time)
			return len(seen) < 4
		})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 4 || seen[3] != 3 {
		t.Errorf("unexpected callback times %v", seen)
	}
}

func TestRunWithCallbackMatchesRun(t *testing.T) {
	cfg := Config{Timing: dynamo.Timing{StepSize: 1, StepsPerSecond: 1}, Duration: 3}

	result, err := New(newHeat(t, 0.1), integrators.NewRK4()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	var streamed []model.Record
	err = New(newHeat(t, 0.1), integrators.NewRK4()).RunWithCallback(context.Background(), cfg, func(rec model.Record) bool {
		streamed = append(streamed, rec)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(streamed) != len(result.Records) {
		t.Fatalf("expected %d records, got %d", len(result.Records), len(streamed))
	}
	for i, rec := range streamed {
		if rec.Time != result.Records[i].Time || rec.Stocks[0] != result.Records[i].Stocks[0] {
			t.Errorf("record %d: streamed %+v, run %+v", i, rec, result.Records[i])
		}
	}
	if last := streamed[len(streamed)-1]; last.Time != cfg.Duration {
		t.Errorf("expected the record at t=%v to be delivered, last was t=%v", cfg.Duration, last.Time)
	}
}
