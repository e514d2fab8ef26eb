// Package stepper advances a simulation in lockstep with wall-clock time.
//
// A Stepper is driven by an injected Scheduler: every frame callback converts
// the elapsed wall-clock time into a whole number of fixed-size emitted steps
// and publishes them as one batch. Late callbacks catch up instead of
// skipping time, and pausing shifts the clock offset so resumed runs continue
// where they stopped.
package stepper

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/sim"
)

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Result pairs an emitted record with its wall-clock timestamp.
type Result struct {
	Timestamp float64
	Record    model.Record
}

// Stepper is single-threaded: every method, including the frame callback,
// must run on the host's scheduling goroutine.
type Stepper struct {
	sim    *sim.Simulator
	timing dynamo.Timing
	sched  Scheduler
	clock  Clock

	state     State
	handle    Handle
	pending   bool
	started   bool
	offset    float64
	stoppedAt float64

	last    Result
	hasLast bool

	listeners []Listener
	detach    func()
}

// New validates timing and binds the stepper to the simulator's model so
// parameter changes are forwarded to listeners until Close.
func New(s *sim.Simulator, timing dynamo.Timing, sched Scheduler, clock Clock) (*Stepper, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	if sched == nil || clock == nil {
		return nil, fmt.Errorf("stepper: scheduler and clock are required")
	}
	st := &Stepper{
		sim:    s,
		timing: timing,
		sched:  sched,
		clock:  clock,
	}
	st.detach = s.Model().OnParameterChange(func(id string, v float64) {
		for _, l := range st.listeners {
			l.OnParameterChanged(id, v)
		}
	})
	return st, nil
}

// Close stops the loop and detaches the stepper from its model.
func (st *Stepper) Close() {
	st.Stop()
	st.detach()
}

func (st *Stepper) Subscribe(l Listener) {
	st.listeners = append(st.listeners, l)
}

func (st *Stepper) State() State              { return st.state }
func (st *Stepper) Timing() dynamo.Timing     { return st.timing }
func (st *Stepper) Simulator() *sim.Simulator { return st.sim }

// Last returns the most recently emitted result.
func (st *Stepper) Last() (Result, bool) {
	return st.last, st.hasLast
}

// SimulationTime is the model time of the last emitted record.
func (st *Stepper) SimulationTime() float64 {
	if !st.hasLast {
		return 0
	}
	return st.last.Record.Time
}

// Play starts or resumes the loop. Resuming shifts the offset by the paused
// duration so simulated time continues where it stopped.
func (st *Stepper) Play() {
	if st.state == Running {
		return
	}
	now := st.clock()
	if st.started {
		st.offset += now - st.stoppedAt
	} else {
		st.offset = now
		st.started = true
	}
	st.state = Running
	st.schedule()
}

// Pause stops the loop and remembers when it stopped. A step already in
// progress completes.
func (st *Stepper) Pause() {
	if st.state != Running {
		return
	}
	st.state = Stopped
	st.stoppedAt = st.clock()
	if st.pending {
		st.sched.Cancel(st.handle)
		st.pending = false
	}
}

func (st *Stepper) Stop() {
	st.Pause()
}

// Reset drops the last result and restores parameter initial values. The
// next frame resynthesizes the initial record. Running state is unchanged.
func (st *Stepper) Reset() {
	st.hasLast = false
	st.last = Result{}
	st.sim.Model().ResetParameters()
	for _, l := range st.listeners {
		l.OnReset()
	}
}

// SetParameter clamps and stores a parameter value. Listeners hear about it
// only if the stored value changed.
func (st *Stepper) SetParameter(id string, v float64) (float64, error) {
	nv, _, err := st.sim.Model().SetParameter(id, v)
	return nv, err
}

// SetTiming replaces the timing used from the next frame on.
func (st *Stepper) SetTiming(timing dynamo.Timing) error {
	if err := timing.Validate(); err != nil {
		return err
	}
	st.timing = timing
	return nil
}

func (st *Stepper) schedule() {
	if st.pending {
		return
	}
	st.handle = st.sched.Request(st.onFrame)
	st.pending = true
}

func (st *Stepper) onFrame(now float64) {
	st.pending = false
	_ = st.Frame(now)
	if st.state == Running {
		st.schedule()
	}
}

// Frame processes one scheduling callback at wall-clock time now. It emits
// at most one results batch. On a step failure nothing from this frame is
// emitted, the stepper stops and listeners receive the error.
func (st *Stepper) Frame(now float64) error {
	if st.state != Running {
		return nil
	}

	target := now - st.offset
	last, hasLast := st.last, st.hasLast
	var batch []Result

	if !hasLast {
		rec, err := st.sim.InitialRecord()
		if err != nil {
			return st.fail(now, err)
		}
		last, hasLast = Result{Timestamp: target, Record: rec}, true
		batch = append(batch, last)
	}

	interval := st.timing.Interval()
	for last.Timestamp+interval <= target {
		rec, err := st.sim.Advance(last.Record, st.timing)
		if err != nil {
			return st.fail(now, err)
		}
		last = Result{Timestamp: last.Timestamp + interval, Record: rec}
		batch = append(batch, last)
	}

	st.last, st.hasLast = last, hasLast

	if len(batch) == 0 {
		return nil
	}
	if len(batch) > 2 {
		logrus.WithFields(logrus.Fields{"steps": len(batch), "target": target}).Debug("stepper caught up")
	}
	for _, l := range st.listeners {
		l.OnResults(batch)
	}
	return nil
}

func (st *Stepper) fail(now float64, err error) error {
	logrus.WithError(err).Debug("stepper stopped on step failure")
	st.state = Stopped
	st.stoppedAt = now
	if st.pending {
		st.sched.Cancel(st.handle)
		st.pending = false
	}
	for _, l := range st.listeners {
		l.OnError(err)
	}
	return err
}
