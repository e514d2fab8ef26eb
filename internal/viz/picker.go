package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/flowsim/internal/models"
)

// Launcher builds the live view for a chosen model.
type Launcher func(def models.Definition) (Live, error)

// Picker lists the model catalogue and launches the selected entry.
type Picker struct {
	names   []string
	cursor  int
	launch  Launcher
	live    Live
	started bool
	err     error
	palette palette
}

func NewPicker(launch Launcher) Picker {
	return Picker{names: models.Names(), launch: launch, palette: ThemeTerminal.palette()}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.started {
		next, cmd := p.live.Update(msg)
		p.live = next.(Live)
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.names)-1 {
			p.cursor++
		}
	case "enter", " ":
		def, err := models.Lookup(p.names[p.cursor])
		if err == nil {
			p.live, err = p.launch(def)
		}
		if err != nil {
			p.err = err
			return p, nil
		}
		p.started, p.err = true, nil
		return p, p.live.Init()
	}
	return p, nil
}

func (p Picker) View() string {
	if p.started {
		return p.live.View()
	}
	pl := p.palette
	var b strings.Builder
	b.WriteString("\n    " + GradientText("FLOWSIM", pl.theme.Primary, pl.theme.Secondary) + "\n")
	b.WriteString("    " + pl.subtle.Render("stock and flow simulation") + "\n")
	b.WriteString("    " + pl.Separator(25) + "\n\n")
	for i, name := range p.names {
		def, _ := models.Lookup(name)
		if i == p.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", pl.active.Render("▸"), pl.value.Bold(true).Render(fmt.Sprintf("%-14s", name)), pl.active.Render(def.Description)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", pl.subtle.Render(fmt.Sprintf("%-14s", name)), pl.subtle.Render(def.Description)))
		}
	}
	if p.err != nil {
		b.WriteString("\n    " + pl.failed.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + pl.help.Render("j/k navigate  enter select  q quit") + "\n")
	return b.String()
}

// RunPicker shows the catalogue menu until the user quits.
func RunPicker(launch Launcher) error {
	final, err := tea.NewProgram(NewPicker(launch), tea.WithAltScreen()).Run()
	if p, ok := final.(Picker); ok && p.started {
		p.live.Stepper().Close()
	}
	return err
}
