package stepper_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/sim"
	"github.com/san-kum/flowsim/internal/stepper"
)

type fakeClock struct{ now float64 }

func (c *fakeClock) Now() float64 { return c.now }

type capture struct {
	batches [][]stepper.Result
	resets  int
	params  []string
	values  []float64
	errs    []error
}

func (c *capture) listener() stepper.Listener {
	return stepper.Funcs{
		Results: func(b []stepper.Result) { c.batches = append(c.batches, b) },
		Reset:   func() { c.resets++ },
		ParameterChanged: func(id string, v float64) {
			c.params = append(c.params, id)
			c.values = append(c.values, v)
		},
		Error: func(err error) { c.errs = append(c.errs, err) },
	}
}

func (c *capture) results() []stepper.Result {
	var all []stepper.Result
	for _, b := range c.batches {
		all = append(all, b...)
	}
	return all
}

func heat() *model.Model {
	m, err := model.New(
		[]model.Stock{{ID: "heat", Inflows: []string{"in"}, Outflows: []string{"out"}}},
		[]model.Flow{
			{ID: "in", Equation: func(_, _, _, _ model.Lookup, _ float64) float64 { return 100 }},
			{ID: "out", Equation: func(s, _, _, c model.Lookup, _ float64) float64 { return c("loss") * s("heat") }},
		},
		nil,
		[]model.Constant{model.Param("loss", 0.1, 0, 1)},
	)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("FrameQueue", func() {
	It("runs only callbacks pending when Fire starts", func() {
		q := stepper.NewFrameQueue()
		var fired []float64
		var again func(now float64)
		again = func(now float64) {
			fired = append(fired, now)
			q.Request(again)
		}
		q.Request(again)

		q.Fire(1)
		Expect(fired).To(Equal([]float64{1}))
		Expect(q.Len()).To(Equal(1))

		q.Fire(2)
		Expect(fired).To(Equal([]float64{1, 2}))
	})

	It("drops cancelled requests", func() {
		q := stepper.NewFrameQueue()
		called := false
		h := q.Request(func(float64) { called = true })
		q.Cancel(h)
		q.Fire(10)
		Expect(called).To(BeFalse())
		Expect(q.Len()).To(BeZero())
	})
})

var _ = Describe("Stepper", func() {
	var (
		clock  *fakeClock
		queue  *stepper.FrameQueue
		m      *model.Model
		st     *stepper.Stepper
		events *capture
	)

	timing := dynamo.Timing{StepSize: 1, SubSteps: 0, StepsPerSecond: 60}

	fire := func(now float64) {
		clock.now = now
		queue.Fire(now)
	}

	BeforeEach(func() {
		clock = &fakeClock{}
		queue = stepper.NewFrameQueue()
		m = heat()
		var err error
		st, err = stepper.New(sim.New(m, integrators.NewRK4()), timing, queue, clock.Now)
		Expect(err).NotTo(HaveOccurred())
		events = &capture{}
		st.Subscribe(events.listener())
	})

	It("rejects invalid timing and a missing scheduler", func() {
		s := sim.New(heat(), integrators.NewRK4())
		_, err := stepper.New(s, dynamo.Timing{StepSize: 0, StepsPerSecond: 60}, queue, clock.Now)
		Expect(err).To(MatchError(dynamo.ErrInvalidTiming))

		_, err = stepper.New(s, timing, nil, clock.Now)
		Expect(err).To(HaveOccurred())
	})

	It("starts stopped and ignores frames until played", func() {
		Expect(st.State()).To(Equal(stepper.Stopped))
		Expect(st.Frame(100)).To(Succeed())
		Expect(events.batches).To(BeEmpty())
		Expect(queue.Len()).To(BeZero())
	})

	It("emits whole steps as wall-clock time passes", func() {
		st.Play()
		Expect(st.State()).To(Equal(stepper.Running))

		fire(0)
		Expect(events.batches).To(HaveLen(1))
		Expect(events.batches[0]).To(HaveLen(1))
		Expect(events.batches[0][0].Timestamp).To(Equal(0.0))
		Expect(events.batches[0][0].Record.Time).To(Equal(0.0))
		Expect(events.batches[0][0].Record.Stocks[0]).To(Equal(0.0))

		fire(16)
		Expect(events.batches).To(HaveLen(1))

		fire(33)
		Expect(events.batches).To(HaveLen(2))
		Expect(events.batches[1]).To(HaveLen(1))
		Expect(events.batches[1][0].Timestamp).To(BeNumerically("~", 1000.0/60, 1e-9))
		Expect(events.batches[1][0].Record.Time).To(Equal(1.0))
		Expect(events.batches[1][0].Record.Stocks[0]).To(BeNumerically("~", 95.1625, 1e-5))

		fire(45)
		Expect(events.batches).To(HaveLen(3))
		Expect(events.batches[2][0].Timestamp).To(BeNumerically("~", 2000.0/60, 1e-9))
		Expect(events.batches[2][0].Record.Time).To(Equal(2.0))

		all := events.results()
		for i := 1; i < len(all); i++ {
			Expect(all[i].Timestamp).To(BeNumerically(">", all[i-1].Timestamp))
		}
		Expect(st.SimulationTime()).To(Equal(2.0))
	})

	It("emits one step per whole interval on a 60 Hz feed", func() {
		st.Play()
		var batches, results []int
		for _, now := range []float64{0, 16, 33, 50} {
			b, r := len(events.batches), len(events.results())
			fire(now)
			batches = append(batches, len(events.batches)-b)
			results = append(results, len(events.results())-r)
		}

		Expect(batches).To(Equal([]int{1, 0, 1, 1}))
		Expect(results).To(Equal([]int{1, 0, 1, 2}))
		last, _ := st.Last()
		Expect(last.Timestamp).To(Equal(50.0))
		Expect(last.Record.Time).To(Equal(3.0))

		all := events.results()
		for i := 1; i < len(all); i++ {
			Expect(all[i].Timestamp).To(BeNumerically(">", all[i-1].Timestamp))
		}
	})

	It("catches up on a late callback in a single batch", func() {
		st.Play()
		fire(0)
		fire(110)

		Expect(events.batches).To(HaveLen(2))
		late := events.batches[1]
		Expect(late).To(HaveLen(6))
		for i, r := range late {
			Expect(r.Record.Time).To(Equal(float64(i + 1)))
			Expect(r.Timestamp).To(BeNumerically("<=", 110.0))
		}
		last, ok := st.Last()
		Expect(ok).To(BeTrue())
		Expect(last.Record.Time).To(Equal(6.0))
	})

	It("advances sub-steps inside each emitted step", func() {
		Expect(st.SetTiming(dynamo.Timing{StepSize: 1, SubSteps: 3, StepsPerSecond: 60})).To(Succeed())
		st.Play()
		fire(0)
		fire(40)

		all := events.results()
		Expect(all).To(HaveLen(3))
		Expect(all[1].Record.Time).To(Equal(1.0))
		Expect(all[2].Record.Time).To(Equal(2.0))
	})

	It("continues from where it paused", func() {
		st.Play()
		fire(0)
		fire(20)
		Expect(st.SimulationTime()).To(Equal(1.0))

		clock.now = 20
		st.Pause()
		Expect(st.State()).To(Equal(stepper.Stopped))
		Expect(queue.Len()).To(BeZero())

		clock.now = 1020
		st.Play()
		Expect(queue.Len()).To(Equal(1))

		fire(1030)
		Expect(events.batches).To(HaveLen(2))

		fire(1040)
		Expect(events.batches).To(HaveLen(3))
		Expect(events.batches[2]).To(HaveLen(1))
		Expect(events.batches[2][0].Record.Time).To(Equal(2.0))
		Expect(events.batches[2][0].Timestamp).To(BeNumerically("~", 2000.0/60, 1e-9))
	})

	It("does not step while stopped", func() {
		st.Play()
		fire(0)
		clock.now = 5
		st.Stop()

		Expect(st.Frame(500)).To(Succeed())
		Expect(events.batches).To(HaveLen(1))
	})

	It("resynthesizes the initial record after a reset", func() {
		st.Play()
		fire(0)
		fire(40)
		_, err := st.SetParameter("loss", 0.5)
		Expect(err).NotTo(HaveOccurred())

		changes := len(events.params)
		st.Reset()
		Expect(events.resets).To(Equal(1))
		Expect(events.params).To(HaveLen(changes))
		p, _ := m.Parameter("loss")
		Expect(p.Value()).To(Equal(0.1))
		_, ok := st.Last()
		Expect(ok).To(BeFalse())
		Expect(st.State()).To(Equal(stepper.Running))

		fire(60)
		first := events.batches[len(events.batches)-1][0]
		Expect(first.Record.Time).To(Equal(0.0))
		Expect(first.Record.Stocks[0]).To(Equal(0.0))
		Expect(first.Timestamp).To(Equal(60.0))
	})

	It("forwards parameter changes only when the stored value changes", func() {
		v, err := st.SetParameter("loss", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1.0))
		Expect(events.params).To(Equal([]string{"loss"}))
		Expect(events.values).To(Equal([]float64{1}))

		_, err = st.SetParameter("loss", 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(events.params).To(HaveLen(1))

		_, err = st.SetParameter("missing", 1)
		Expect(err).To(MatchError(model.ErrUnknownIdentifier))
	})

	It("stops forwarding model changes after Close", func() {
		st.Play()
		st.Close()
		Expect(st.State()).To(Equal(stepper.Stopped))
		Expect(queue.Len()).To(BeZero())

		_, _, err := m.SetParameter("loss", 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(events.params).To(BeEmpty())
	})

	It("uses a parameter change from the next step on", func() {
		st.Play()
		fire(0)
		_, err := st.SetParameter("loss", 0)
		Expect(err).NotTo(HaveOccurred())
		fire(20)

		last, _ := st.Last()
		Expect(last.Record.Stocks[0]).To(BeNumerically("~", 100, 1e-9))
	})

	Context("when a step fails", func() {
		BeforeEach(func() {
			var err error
			m, err = model.New(
				[]model.Stock{{ID: "s", Inflows: []string{"f"}}},
				[]model.Flow{{ID: "f", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("A") }}},
				[]model.Variable{
					{ID: "A", Equation: func(_, _, v, _ model.Lookup, t float64) float64 {
						if t >= 2 {
							return v("B")
						}
						return 1
					}},
					{ID: "B", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("A") }},
				},
				nil,
			)
			Expect(err).NotTo(HaveOccurred())
			st, err = stepper.New(sim.New(m, integrators.NewRK4()), timing, queue, clock.Now)
			Expect(err).NotTo(HaveOccurred())
			events = &capture{}
			st.Subscribe(events.listener())
		})

		It("stops, reports the error and emits nothing from that frame", func() {
			st.Play()
			fire(0)
			fire(20)
			Expect(events.batches).To(HaveLen(2))

			fire(40)
			Expect(events.batches).To(HaveLen(2))
			Expect(events.errs).To(HaveLen(1))
			Expect(errors.Is(events.errs[0], model.ErrEvaluationCycle)).To(BeTrue())
			Expect(st.State()).To(Equal(stepper.Stopped))
			Expect(queue.Len()).To(BeZero())
			Expect(st.SimulationTime()).To(Equal(1.0))
		})
	})
})
