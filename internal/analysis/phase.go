package analysis

import (
	"fmt"
	"math"
	"strings"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []struct{ X, Y float64 }
}

// NewPhasePortrait pairs components xIdx and yIdx of recorded states.
func NewPhasePortrait(states [][]float64, xIdx, yIdx int) (*PhasePortrait2D, error) {
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]struct{ X, Y float64 }, 0, len(states)),
	}
	for i, x := range states {
		if xIdx >= len(x) || yIdx >= len(x) {
			return nil, fmt.Errorf("analysis: sample %d has %d components, need index %d",
				i, len(x), max(xIdx, yIdx))
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Crossings returns the times at which values crosses level in either
// direction, linearly interpolated between samples. A sample exactly at
// level counts once.
func Crossings(times, values []float64, level float64) []float64 {
	var out []float64
	for i := 1; i < len(values); i++ {
		a, b := values[i-1]-level, values[i]-level
		switch {
		case a == 0:
			if i == 1 || values[i-2]-level != 0 {
				out = append(out, times[i-1])
			}
		case a*b < 0:
			frac := a / (a - b)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	if n := len(values); n > 0 && values[n-1] == level && (n == 1 || values[n-2] != level) {
		out = append(out, times[n-1])
	}
	return out
}

// PeriodFromCrossings estimates a period from every other crossing of
// level, so that up and down crossings are not mixed. It needs at least
// three crossings.
func PeriodFromCrossings(times, values []float64, level float64) (float64, error) {
	c := Crossings(times, values, level)
	if len(c) < 3 {
		return 0, fmt.Errorf("%w: %d crossings of %g", ErrNoPeriod, len(c), level)
	}
	m := (len(c) - 1) / 2
	return (c[2*m] - c[0]) / float64(m), nil
}
