package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the colour scheme of the live view.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var (
	ThemeTerminal = Theme{
		Name:      "terminal",
		Primary:   lipgloss.Color("#00cccc"),
		Secondary: lipgloss.Color("#ff88ff"),
		Accent:    lipgloss.Color("#ffcc00"),
		Text:      lipgloss.Color("#e0e0e0"),
		Muted:     lipgloss.Color("#666688"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff4444"),
	}

	ThemeRetro = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"),
		Secondary: lipgloss.Color("#00cc00"),
		Accent:    lipgloss.Color("#88ff88"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Success:   lipgloss.Color("#88ff88"),
		Warning:   lipgloss.Color("#ffff00"),
		Error:     lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
	}

	Themes = []Theme{ThemeTerminal, ThemeRetro, ThemeOcean}
)

// GetTheme returns the named theme, or the first one if the name is unknown.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// Next returns the theme after t in Themes, wrapping around.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// palette holds the styles derived from a theme.
type palette struct {
	theme    Theme
	header   lipgloss.Style
	subtle   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	active   lipgloss.Style
	graph    lipgloss.Style
	help     lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	failed   lipgloss.Style
	sparkHi  lipgloss.Style
	sparkMid lipgloss.Style
	sparkLo  lipgloss.Style
	panel    lipgloss.Style
}

func (t Theme) palette() palette {
	return palette{
		theme:    t,
		header:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		subtle:   lipgloss.NewStyle().Foreground(t.Muted),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		active:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		graph:    lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		help:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		running:  lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		paused:   lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		failed:   lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		sparkHi:  lipgloss.NewStyle().Foreground(t.Success),
		sparkMid: lipgloss.NewStyle().Foreground(t.Accent),
		sparkLo:  lipgloss.NewStyle().Foreground(t.Error),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2),
	}
}
