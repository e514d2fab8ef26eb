package viz

import (
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/sim"
	"github.com/san-kum/flowsim/internal/stepper"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

type fakeClock struct{ now float64 }

func (c *fakeClock) Now() float64 { return c.now }

func newHeatLive(t *testing.T) (Live, *fakeClock) {
	t.Helper()
	def, err := models.Lookup("heat")
	require.NoError(t, err)
	m, _ := def.Build()
	clock := &fakeClock{}
	l, err := newLive(def, sim.New(m, integrators.NewRK4()), dynamo.Timing{StepSize: 1, StepsPerSecond: 60}, clock.Now)
	require.NoError(t, err)
	return l, clock
}

func send(t *testing.T, l Live, msg tea.Msg) Live {
	t.Helper()
	next, _ := l.Update(msg)
	out, ok := next.(Live)
	require.True(t, ok)
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLiveStartsRunningOnFocus(t *testing.T) {
	l, _ := newHeatLive(t)
	assert.Equal(t, stepper.Running, l.Stepper().State())
	assert.Equal(t, "heat", l.Focus())
	assert.NotNil(t, l.Init())
}

func TestLiveTickFiresFrames(t *testing.T) {
	l, clock := newHeatLive(t)

	l = send(t, l, TickMsg{})
	assert.Equal(t, 1, l.s.hist.len())

	clock.now = 40
	l = send(t, l, TickMsg{})
	assert.Equal(t, 3, l.s.hist.len())
	assert.Equal(t, []float64{0, 1, 2}, l.s.hist.times)
	assert.InDelta(t, 95.1625, l.s.hist.column(0)[1], 1e-4)

	view := l.View()
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "loss")
}

func TestLivePauseAndResume(t *testing.T) {
	l, clock := newHeatLive(t)
	l = send(t, l, TickMsg{})

	l = send(t, l, key(" "))
	assert.Equal(t, stepper.Stopped, l.Stepper().State())
	clock.now = 500
	l = send(t, l, TickMsg{})
	assert.Equal(t, 1, l.s.hist.len())
	assert.Contains(t, l.View(), "PAUSED")

	l = send(t, l, key(" "))
	assert.Equal(t, stepper.Running, l.Stepper().State())
}

func TestLiveTunesAndResetsParameters(t *testing.T) {
	l, clock := newHeatLive(t)
	loss, ok := l.s.model.Parameter("loss")
	require.True(t, ok)

	l = send(t, l, key("up"))
	assert.InDelta(t, 0.15, loss.Value(), 1e-12)
	assert.Equal(t, "loss = 0.15", l.s.status)

	for i := 0; i < 30; i++ {
		l = send(t, l, key("down"))
	}
	assert.Equal(t, 0.0, loss.Value())

	l = send(t, l, TickMsg{})
	clock.now = 40
	l = send(t, l, TickMsg{})
	require.Equal(t, 3, l.s.hist.len())

	l = send(t, l, key("r"))
	assert.Equal(t, 0.1, loss.Value())
	assert.Zero(t, l.s.hist.len())
	assert.Equal(t, "reset", l.s.status)
}

func TestLiveKeys(t *testing.T) {
	l, _ := newHeatLive(t)

	l = send(t, l, key("f"))
	assert.Equal(t, "in", l.Focus())
	l = send(t, l, key("f"))
	l = send(t, l, key("f"))
	assert.Equal(t, "heat", l.Focus())

	l = send(t, l, key("p"))
	assert.False(t, l.phase, "phase needs two stocks")

	l = send(t, l, key("t"))
	assert.Equal(t, ThemeRetro.Name, l.palette.theme.Name)

	l = send(t, l, key("?"))
	assert.True(t, l.showHelp)
	assert.Contains(t, l.View(), "KEYBOARD SHORTCUTS")

	_, cmd := l.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestLivePhasePortrait(t *testing.T) {
	def, err := models.Lookup("predator_prey")
	require.NoError(t, err)
	m, timing := def.Build()
	clock := &fakeClock{}
	l, err := newLive(def, sim.New(m, integrators.NewRK4()), timing, clock.Now)
	require.NoError(t, err)

	l = send(t, l, TickMsg{})
	clock.now = 1000
	l = send(t, l, TickMsg{})

	l = send(t, l, key("p"))
	require.True(t, l.phase)
	assert.Contains(t, l.View(), "predators vs prey")
}

func TestLiveReportsStepFailure(t *testing.T) {
	m, err := model.New(
		[]model.Stock{{ID: "s", Inflows: []string{"f"}}},
		[]model.Flow{{ID: "f", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("a") }}},
		[]model.Variable{
			{ID: "a", Equation: func(_, _, v, _ model.Lookup, t float64) float64 {
				if t >= 1 {
					return v("b")
				}
				return 1
			}},
			{ID: "b", Equation: func(_, _, v, _ model.Lookup, _ float64) float64 { return v("a") }},
		},
		nil,
	)
	require.NoError(t, err)
	clock := &fakeClock{}
	l, err := newLive(models.Definition{Name: "loop", Focus: "s"}, sim.New(m, integrators.NewEuler()), dynamo.Timing{StepSize: 1, StepsPerSecond: 60}, clock.Now)
	require.NoError(t, err)

	l = send(t, l, TickMsg{})
	clock.now = 40
	l = send(t, l, TickMsg{})

	require.Error(t, l.s.err)
	assert.True(t, errors.Is(l.s.err, model.ErrEvaluationCycle))
	assert.Equal(t, stepper.Stopped, l.Stepper().State())
	assert.Contains(t, l.View(), "FAILED")
}

func TestPickerLaunchesSelection(t *testing.T) {
	var launched string
	p := NewPicker(func(def models.Definition) (Live, error) {
		launched = def.Name
		l, _ := newHeatLive(t)
		return l, nil
	})
	assert.Contains(t, p.View(), "bathtub")

	next, _ := p.Update(key("j"))
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)

	assert.Equal(t, models.Names()[1], launched)
	assert.True(t, p.started)
	assert.NotNil(t, cmd)
}

func TestPickerShowsLaunchError(t *testing.T) {
	p := NewPicker(func(models.Definition) (Live, error) { return Live{}, errors.New("no terminal") })
	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	assert.False(t, p.started)
	assert.Contains(t, p.View(), "no terminal")
}

func TestHistoryIsBounded(t *testing.T) {
	h := newHistory(2, 3)
	for i := 0; i < 5; i++ {
		h.push(model.Record{Time: float64(i), Stocks: []float64{float64(i)}, Flows: []float64{-float64(i)}})
	}
	assert.Equal(t, []float64{2, 3, 4}, h.times)
	assert.Equal(t, []float64{-2, -3, -4}, h.column(1))
	assert.Nil(t, h.column(5))

	h.clear()
	assert.Zero(t, h.len())
}

func TestCanvasTrajectory(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Trajectory([]float64{0, 1}, []float64{0, 1})

	// Bottom-left to top-right across a 4x4 dot grid.
	assert.Equal(t, rune(brailleBlank|0x40|0x20), c.Grid[0][0])
	assert.Equal(t, rune(brailleBlank|0x2|0x8), c.Grid[0][1])

	c.Trajectory(nil, nil)
	assert.Equal(t, strings.Repeat(string(rune(brailleBlank)), 2)+"\n", c.String())
}

func TestPlots(t *testing.T) {
	assert.Empty(t, PlotSeries(nil, "x", 10, 3))
	assert.Contains(t, PlotSeries([]float64{1, 2, 3}, "heat", 10, 3), "heat")
	assert.Empty(t, PlotHysteresis([]float64{1}, nil, "x", 10, 3))
	assert.Contains(t, PlotHysteresis([]float64{1, 2}, []float64{3, 2}, "temperature", 10, 3), "temperature")
}

func TestThemes(t *testing.T) {
	assert.Equal(t, ThemeOcean, GetTheme("ocean"))
	assert.Equal(t, ThemeTerminal, GetTheme("missing"))
	assert.Equal(t, ThemeTerminal, ThemeOcean.Next())
	assert.Equal(t, []string{"terminal", "retro", "ocean"}, ThemeNames())
	assert.Equal(t, "#0a0b0c", hexColor(10, 11, 12))
}
