package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GradientText colours text by interpolating between two hex colours.
func GradientText(text string, startColor, endColor lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	sr, sg, sb := parseHex(string(startColor))
	er, eg, eb := parseHex(string(endColor))

	var b strings.Builder
	n := len(runes)
	for i, c := range runes {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r := int(float64(sr) + t*float64(er-sr))
		g := int(float64(sg) + t*float64(eg-sg))
		bl := int(float64(sb) + t*float64(eb-sb))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(r, g, bl))).Render(string(c)))
	}
	return b.String()
}

// RangeBar shows where v sits inside [lo, hi]. Unbounded ranges render as an
// empty track.
func (p palette) RangeBar(v, lo, hi float64, width int) string {
	frac := 0.0
	if hi > lo && !math.IsInf(hi-lo, 0) {
		frac = (v - lo) / (hi - lo)
	}
	filled := int(math.Round(frac * float64(width)))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case frac > 0.8:
		return p.sparkHi.Render(bar)
	case frac > 0.4:
		return p.sparkMid.Render(bar)
	}
	return p.sparkLo.Render(bar)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as a one-line chart. NaN samples
// render as gaps.
func (p palette) Sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo > hi {
		return p.subtle.Render(strings.Repeat("─", width))
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteRune(' ')
			continue
		}
		norm := (v - lo) / rng
		idx := max(0, min(len(sparkChars)-1, int(norm*float64(len(sparkChars)-1))))
		c := string(sparkChars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(p.sparkHi.Render(c))
		case norm > 0.3:
			b.WriteString(p.sparkMid.Render(c))
		default:
			b.WriteString(p.sparkLo.Render(c))
		}
	}
	return b.String()
}

func (p palette) Separator(width int) string {
	mid := width / 2
	return p.subtle.Render(strings.Repeat("─", max(0, mid-3)) + " ◆ " + strings.Repeat("─", max(0, width-mid-3)))
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	return parseHexByte(hex[1:3]), parseHexByte(hex[3:5]), parseHexByte(hex[5:7])
}

func parseHexByte(s string) int {
	var val int
	for _, c := range s {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

func hexColor(r, g, b int) string {
	return "#" + hexByte(r) + hexByte(g) + hexByte(b)
}

func hexByte(v int) string {
	v = max(0, min(255, v))
	const hex = "0123456789abcdef"
	return string(hex[v/16]) + string(hex[v%16])
}
