package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

// Degrees converts radians in place and returns values.
func Degrees(values []float64) []float64 {
	for i, v := range values {
		values[i] = v * 180 / math.Pi
	}
	return values
}

// Downsample keeps at most n evenly spaced values, first and last
// included.
func Downsample(values []float64, n int) []float64 {
	if n <= 1 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		out[i] = values[int(math.Round(float64(i)*step))]
	}
	return out
}

// Plot renders one series.
func Plot(values []float64, caption string, width, height int) string {
	return asciigraph.Plot(Downsample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// PlotMany renders several series of equal length on shared axes.
func PlotMany(series [][]float64, caption string, width, height int) string {
	data := make([][]float64, len(series))
	for i, s := range series {
		data[i] = Downsample(s, width)
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// AngleCaption names the plotted joint angles.
func AngleCaption(n int, span float64) string {
	return fmt.Sprintf("θ0..θ%d [deg] over %.3gs", n-1, span)
}
