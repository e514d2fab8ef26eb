package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille pixel grid. Its resolution in dots is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Trajectory clears the canvas and draws ys against xs, scaled to fill it.
// Non-finite points break the line.
func (c *Canvas) Trajectory(xs, ys []float64) {
	c.Clear()
	n := min(len(xs), len(ys))
	xlo, xhi := bounds(xs[:n])
	ylo, yhi := bounds(ys[:n])
	if xlo > xhi || ylo > yhi {
		return
	}
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	project := func(x, y float64) (int, int) {
		px := 0.5
		if xhi > xlo {
			px = (x - xlo) / (xhi - xlo)
		}
		py := 0.5
		if yhi > ylo {
			py = (y - ylo) / (yhi - ylo)
		}
		return int(math.Round(px * w)), int(math.Round((1 - py) * h))
	}

	prev := false
	var px, py int
	for i := 0; i < n; i++ {
		if !finite(xs[i]) || !finite(ys[i]) {
			prev = false
			continue
		}
		x, y := project(xs[i], ys[i])
		if prev {
			c.DrawLine(px, py, x, y)
		} else {
			c.Set(x, y)
		}
		px, py, prev = x, y, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func bounds(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if finite(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	return lo, hi
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
