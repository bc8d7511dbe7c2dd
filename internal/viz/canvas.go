package viz

import (
	"math"
	"strings"
)

// Braille patterns hold 2x4 dots per cell:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// starting at U+2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of Braille cells addressed in sub-pixels; it is
// 2*Width dots wide and 4*Height dots tall.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at sub-pixel (x, y). Points off the canvas are
// ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
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

// DrawDashed draws every other run of dash dots along a line.
func (c *Canvas) DrawDashed(x0, y0, x1, y1, dash int) {
	n := max(absInt(x1-x0), absInt(y1-y0))
	if n == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= n; i++ {
		if (i/dash)%2 != 0 {
			continue
		}
		x := x0 + int(math.Round(float64(i*(x1-x0))/float64(n)))
		y := y0 + int(math.Round(float64(i*(y1-y0))/float64(n)))
		c.Set(x, y)
	}
}

// DrawRing marks a small square ring around (x, y).
func (c *Canvas) DrawRing(x, y int) {
	for d := -1; d <= 1; d++ {
		c.Set(x+d, y-1)
		c.Set(x+d, y+1)
		c.Set(x-1, y+d)
		c.Set(x+1, y+d)
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

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport is the world rectangle shown on a canvas.
type Viewport struct {
	MinX, MinY, MaxX, MaxY float64
}

// Project maps a world point to sub-pixels, keeping the aspect ratio and
// centering the viewport. y grows upwards in the world and downwards on
// the canvas.
func (v Viewport) Project(c *Canvas, p [2]float64) (int, int) {
	w, h := float64(2*c.Width-1), float64(4*c.Height-1)
	scale := math.Min(w/(v.MaxX-v.MinX), h/(v.MaxY-v.MinY))
	ox := (w - scale*(v.MaxX-v.MinX)) / 2
	oy := (h - scale*(v.MaxY-v.MinY)) / 2
	x := ox + scale*(p[0]-v.MinX)
	y := h - oy - scale*(p[1]-v.MinY)
	return int(math.Round(x)), int(math.Round(y))
}

// Pad grows v by frac of its larger side on every edge.
func (v Viewport) Pad(frac float64) Viewport {
	d := frac * math.Max(v.MaxX-v.MinX, v.MaxY-v.MinY)
	return Viewport{v.MinX - d, v.MinY - d, v.MaxX + d, v.MaxY + d}
}
