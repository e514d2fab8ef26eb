package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/sim"
	"github.com/san-kum/flowsim/internal/stepper"
)

const (
	frameInterval = time.Second / 60
	plotWidth     = 56
	plotHeight    = 12
	sparkWidth    = 24
	barWidth      = 12
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// session is the engine side of the view. It is shared between copies of
// Live and mutated by stepper notifications.
type session struct {
	def     models.Definition
	model   *model.Model
	stepper *stepper.Stepper
	queue   *stepper.FrameQueue
	clock   stepper.Clock
	hist    *history
	status  string
	err     error
}

func (s *session) listener() stepper.Listener {
	return stepper.Funcs{
		Results: func(batch []stepper.Result) {
			for _, r := range batch {
				s.hist.push(r.Record)
			}
		},
		Reset: func() {
			s.hist.clear()
			s.err = nil
			s.status = "reset"
		},
		ParameterChanged: func(id string, v float64) {
			s.status = fmt.Sprintf("%s = %.4g", id, v)
		},
		Error: func(err error) {
			logrus.WithError(err).Warn("live simulation stopped")
			s.err = err
		},
	}
}

// Live is the bubbletea model of a running simulation. Every tick fires the
// frame queue, so the stepper runs on the program's update goroutine.
type Live struct {
	s *session

	columns   []string
	plottable int
	focus     int
	params    []*model.Parameter
	selected  int

	palette  palette
	phase    bool
	showHelp bool
}

// NewLive hosts s in a stepper paced by the wall clock and starts it.
func NewLive(def models.Definition, s *sim.Simulator, timing dynamo.Timing) (Live, error) {
	start := time.Now()
	return newLive(def, s, timing, func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	})
}

func newLive(def models.Definition, s *sim.Simulator, timing dynamo.Timing, clock stepper.Clock) (Live, error) {
	queue := stepper.NewFrameQueue()
	st, err := stepper.New(s, timing, queue, clock)
	if err != nil {
		return Live{}, err
	}
	m := s.Model()
	sess := &session{
		def:     def,
		model:   m,
		stepper: st,
		queue:   queue,
		clock:   clock,
		hist:    newHistory(len(m.Columns()), historyCapacity),
	}
	st.Subscribe(sess.listener())

	l := Live{
		s:         sess,
		columns:   m.Columns(),
		plottable: len(m.Stocks()) + len(m.Flows()) + len(m.Variables()),
		palette:   ThemeTerminal.palette(),
	}
	for i, id := range l.columns[:l.plottable] {
		if id == def.Focus {
			l.focus = i
		}
	}
	for _, p := range m.Parameters() {
		if p.Adjustable() {
			l.params = append(l.params, p)
		}
	}
	st.Play()
	return l, nil
}

func (l Live) Stepper() *stepper.Stepper { return l.s.stepper }
func (l Live) Focus() string             { return l.columns[l.focus] }

func (l Live) Init() tea.Cmd {
	return tick()
}

func (l Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			l.togglePlay()
		case "r":
			l.s.stepper.Reset()
		case "tab":
			if len(l.params) > 0 {
				l.selected = (l.selected + 1) % len(l.params)
			}
		case "up", "k":
			l.adjust(1)
		case "down", "j":
			l.adjust(-1)
		case "f":
			if l.plottable > 0 {
				l.focus = (l.focus + 1) % l.plottable
			}
		case "p":
			l.phase = !l.phase && len(l.s.model.Stocks()) >= 2
		case "t":
			l.palette = l.palette.theme.Next().palette()
		case "?":
			l.showHelp = !l.showHelp
		}
	case TickMsg:
		l.s.queue.Fire(l.s.clock())
		return l, tick()
	}
	return l, nil
}

func (l *Live) togglePlay() {
	st := l.s.stepper
	if st.State() == stepper.Running {
		st.Pause()
		return
	}
	l.s.err = nil
	st.Play()
}

// adjust nudges the selected parameter by 5% of its range. The model clamps
// the result.
func (l *Live) adjust(dir float64) {
	if len(l.params) == 0 {
		return
	}
	p := l.params[l.selected]
	lo, hi := p.Range()
	delta := 0.05 * (hi - lo)
	if !(delta > 0) || math.IsInf(delta, 0) {
		delta = 0.05 * math.Abs(p.Value())
		if delta == 0 {
			delta = 0.05
		}
	}
	if _, err := l.s.stepper.SetParameter(p.ID(), p.Value()+dir*delta); err != nil {
		l.s.err = err
	}
}

func (l Live) View() string {
	p := l.palette
	var main strings.Builder

	main.WriteString(GradientText(strings.ToUpper(l.s.def.Name), p.theme.Primary, p.theme.Secondary) + "\n")
	main.WriteString(p.subtle.Render(l.s.def.Description) + "\n\n")
	main.WriteString(l.statusLine() + "\n")

	switch {
	case l.phase:
		main.WriteString(p.graph.Render(l.phasePortrait()) + "\n")
	case l.s.hist.len() > 1:
		chart := asciigraph.Plot(l.s.hist.column(l.focus),
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(l.columns[l.focus]))
		main.WriteString(p.graph.Render(chart) + "\n")
	default:
		main.WriteString(p.subtle.Render("waiting for results") + "\n")
	}
	main.WriteString(p.help.Render("space:play/pause r:reset tab:param ↑↓:tune f:focus p:phase t:theme ?:help q:quit"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, main.String(), p.panel.Render(l.sidePanel()))
	if l.showHelp {
		return helpOverlay + "\n" + view
	}
	return view
}

func (l Live) statusLine() string {
	p := l.palette
	st := l.s.stepper
	var state string
	switch {
	case l.s.err != nil:
		state = p.failed.Render("FAILED")
	case st.State() == stepper.Running:
		state = p.running.Render("RUNNING")
	default:
		state = p.paused.Render("PAUSED")
	}
	line := fmt.Sprintf("%s  t=%.3f", state, st.SimulationTime())
	if l.s.err != nil {
		line += "  " + p.failed.Render(l.s.err.Error())
	} else if l.s.status != "" {
		line += "  " + p.subtle.Render(l.s.status)
	}
	return line
}

func (l Live) sidePanel() string {
	p := l.palette
	var b strings.Builder

	b.WriteString(p.header.Render("STOCKS") + "\n")
	last, ok := l.s.stepper.Last()
	for i, s := range l.s.model.Stocks() {
		v := math.NaN()
		if ok && i < len(last.Record.Stocks) {
			v = last.Record.Stocks[i]
		}
		name := s.ID
		if i == l.focus {
			name = "*" + name
		}
		b.WriteString(p.label.Render(name) + p.value.Render(fmt.Sprintf("%10.4g ", v)) + p.Sparkline(l.s.hist.column(i), sparkWidth) + "\n")
	}

	if l.focus >= len(l.s.model.Stocks()) {
		series := l.s.hist.column(l.focus)
		if len(series) > 0 {
			b.WriteString(p.label.Render("*"+l.columns[l.focus]) + p.value.Render(fmt.Sprintf("%10.4g", series[len(series)-1])) + "\n")
		}
	}

	b.WriteString("\n" + p.header.Render("PARAMETERS") + "\n")
	if len(l.params) == 0 {
		b.WriteString(p.subtle.Render("(none)") + "\n")
	}
	for i, param := range l.params {
		lo, hi := param.Range()
		line := fmt.Sprintf("%-14s %s %8.4g", param.ID(), p.RangeBar(param.Value(), lo, hi, barWidth), param.Value())
		if i == l.selected {
			b.WriteString(p.active.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	timing := l.s.stepper.Timing()
	b.WriteString("\n" + p.Separator(30) + "\n")
	b.WriteString(p.label.Render("step") + p.value.Render(fmt.Sprintf("%g", timing.StepSize)) + "\n")
	b.WriteString(p.label.Render("sub-steps") + p.value.Render(fmt.Sprintf("%d", timing.SubSteps)) + "\n")
	b.WriteString(p.label.Render("steps/s") + p.value.Render(fmt.Sprintf("%g", timing.StepsPerSecond)) + "\n")
	b.WriteString(p.label.Render("integrator") + p.value.Render(l.s.stepper.Simulator().Integrator().Name()) + "\n")
	return b.String()
}

// phasePortrait plots the second stock against the first.
func (l Live) phasePortrait() string {
	stocks := l.s.model.Stocks()
	c := NewCanvas(plotWidth/2, plotHeight/2)
	c.Trajectory(l.s.hist.column(0), l.s.hist.column(1))
	return c.String() + fmt.Sprintf("%s vs %s", stocks[1].ID, stocks[0].ID)
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Play/pause               ║
║  R        - Reset to initial values  ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Raise parameter          ║
║  Down/J   - Lower parameter          ║
║  F        - Cycle plotted series     ║
║  P        - Toggle phase portrait    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
`

// Run shows l until the user quits.
func Run(l Live) error {
	defer l.Stepper().Close()
	_, err := tea.NewProgram(l, tea.WithAltScreen()).Run()
	return err
}
