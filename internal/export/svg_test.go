package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)

	svg := CanvasToSVG(c, 2, "#00ff00")
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `width="16" height="16"`)
	assert.Empty(t, CanvasToSVG(nil, 1, "#fff"))
}

func TestLinkageSVG(t *testing.T) {
	lengths := []float64{1, 2, 3, 4}
	var frames [][][2]float64
	for _, q := range [][]float64{
		{1.4835, 0.5, -1.0},
		{1.6, 0.45, -1.05},
		{1.7, 0.4, -1.1},
	} {
		frames = append(frames, linkage.JointPositions(lengths, q))
	}

	var buf bytes.Buffer
	require.NoError(t, LinkageSVG(&buf, lengths, frames, 400, 300, DefaultStyle))
	svg := buf.String()

	assert.Contains(t, svg, `viewBox="0 0 400 300"`)
	// one path per moving joint between the pivots
	assert.Equal(t, 2, strings.Count(svg, "<path"))
	assert.Equal(t, 2, strings.Count(svg, "<polyline"))
	assert.Equal(t, 8, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, "stroke-dasharray")
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestLinkageSVGErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, LinkageSVG(&buf, []float64{1, 2, 3, 4}, nil, 100, 100, DefaultStyle))
	frames := [][][2]float64{{{0, 0}, {1, 0}, {2, 0}, {4, 0}}}
	assert.Error(t, LinkageSVG(&buf, []float64{1, 2, 3, 4}, frames, 0, 100, DefaultStyle))
}
