package viz

import (
	"slices"

	"github.com/guptarohit/asciigraph"
)

// PlotSeries draws values as an ASCII line chart.
func PlotSeries(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}

// PlotHysteresis overlays both sweep branches against the ascending
// parameter axis. down is given in sweep order, from hi to lo.
func PlotHysteresis(up, down []float64, caption string, width, height int) string {
	if len(up) == 0 || len(down) == 0 {
		return ""
	}
	rev := slices.Clone(down)
	slices.Reverse(rev)
	return asciigraph.PlotMany([][]float64{up, rev},
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption(caption+" (green: up, red: down)"))
}
