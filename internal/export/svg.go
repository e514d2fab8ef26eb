// Package export renders archived runs as standalone SVG charts.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrNoData = errors.New("export: not enough finite points to draw")

var strokeColors = []string{"#00ccff", "#ff88ff", "#ffcc00", "#00ff88", "#ff4444", "#8888ff"}

// Line is one named series drawn against a shared x axis.
type Line struct {
	Name   string
	Values []float64
}

type bbox struct{ minX, maxX, minY, maxY float64 }

func (b *bbox) add(x, y float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
}

// pad widens the box by 10% so strokes do not touch the frame.
func (b *bbox) pad() {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	b.minX, b.maxX = b.minX-rx*0.1, b.maxX+rx*0.1
	b.minY, b.maxY = b.minY-ry*0.1, b.maxY+ry*0.1
}

func emptyBox() bbox {
	return bbox{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// TimeSeriesSVG draws every line against times. Non-finite samples break
// the stroke.
func TimeSeriesSVG(times []float64, lines []Line, width, height int) (string, error) {
	box := emptyBox()
	points := 0
	for _, l := range lines {
		for i, v := range l.Values {
			if i < len(times) && finite(times[i]) && finite(v) {
				box.add(times[i], v)
				points++
			}
		}
	}
	if points < 2 {
		return "", ErrNoData
	}
	box.pad()

	var sb strings.Builder
	header(&sb, width, height)
	for i, l := range lines {
		color := strokeColors[i%len(strokeColors)]
		path(&sb, box, width, height, times, l.Values, color)
		fmt.Fprintf(&sb, "<text x=\"8\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n", 16+14*i, color, escape(l.Name))
	}
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// PhaseSVG draws ys against xs.
func PhaseSVG(xName string, xs []float64, yName string, ys []float64, width, height int) (string, error) {
	box := emptyBox()
	points := 0
	for i := 0; i < len(xs) && i < len(ys); i++ {
		if finite(xs[i]) && finite(ys[i]) {
			box.add(xs[i], ys[i])
			points++
		}
	}
	if points < 2 {
		return "", ErrNoData
	}
	box.pad()

	var sb strings.Builder
	header(&sb, width, height)
	path(&sb, box, width, height, xs, ys, strokeColors[0])
	fmt.Fprintf(&sb, "<text x=\"8\" y=\"16\" fill=\"#888899\" font-family=\"monospace\" font-size=\"12\">%s vs %s</text>\n", escape(yName), escape(xName))
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func path(sb *strings.Builder, b bbox, width, height int, xs, ys []float64, color string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, color)
	pen := false
	for i := 0; i < len(xs) && i < len(ys); i++ {
		if !finite(xs[i]) || !finite(ys[i]) {
			pen = false
			continue
		}
		x := (xs[i] - b.minX) / (b.maxX - b.minX) * float64(width)
		y := float64(height) - (ys[i]-b.minY)/(b.maxY-b.minY)*float64(height)
		cmd := "L"
		if !pen {
			cmd = "M"
		}
		fmt.Fprintf(sb, "%s%.1f,%.1f ", cmd, x, y)
		pen = true
	}
	sb.WriteString("\"/>\n")
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
