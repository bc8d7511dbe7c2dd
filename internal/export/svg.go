// Package export renders linkage runs as SVG images.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/linkage/internal/viz"
)

// Style colors an SVG drawing.
type Style struct {
	Background string
	Links      string
	Ground     string
	Paths      []string
}

// DefaultStyle matches the default terminal theme.
var DefaultStyle = Style{
	Background: "#0a0a0a",
	Links:      "#00ffff",
	Ground:     "#555555",
	Paths:      []string{"#ff00ff", "#ffff00", "#00ff00"},
}

// CanvasToSVG draws every lit dot of a Braille canvas as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64, fill string) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	header(&sb, width, height, DefaultStyle.Background)
	fmt.Fprintf(&sb, "<g fill=%q>\n", fill)

	dotRadius := scale * 0.4
	for y := 0; y < 4*canvas.Height; y++ {
		for x := 0; x < 2*canvas.Width; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

func header(sb *strings.Builder, width, height float64, bg string) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill=%q/>
`, width, height, width, height, bg)
}

// frame maps world coordinates onto an image, y up, aspect kept.
type frame struct {
	v             viz.Viewport
	scale, ox, oy float64
	height        float64
}

func newFrame(v viz.Viewport, width, height int) frame {
	w, h := float64(width), float64(height)
	scale := math.Min(w/(v.MaxX-v.MinX), h/(v.MaxY-v.MinY))
	return frame{
		v:      v,
		scale:  scale,
		ox:     (w - scale*(v.MaxX-v.MinX)) / 2,
		oy:     (h - scale*(v.MaxY-v.MinY)) / 2,
		height: h,
	}
}

func (f frame) point(p [2]float64) (float64, float64) {
	return f.ox + f.scale*(p[0]-f.v.MinX), f.height - f.oy - f.scale*(p[1]-f.v.MinY)
}

// LinkageSVG writes the paths traced by the moving joints over frames,
// each frame being the joint positions P0..Pn at one sample, together
// with the mechanism drawn at the first and last frame.
func LinkageSVG(w io.Writer, lengths []float64, frames [][][2]float64, width, height int, style Style) error {
	if len(frames) == 0 {
		return fmt.Errorf("export: no frames")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("export: bad image size %dx%d", width, height)
	}
	f := newFrame(viz.LinkageViewport(lengths).Pad(0.05), width, height)
	ground := [2]float64{lengths[len(lengths)-1], 0}

	var sb strings.Builder
	header(&sb, float64(width), float64(height), style.Background)

	joints := len(frames[0])
	for k := 1; k < joints-1; k++ {
		color := "#ffffff"
		if len(style.Paths) > 0 {
			color = style.Paths[(k-1)%len(style.Paths)]
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke=%q stroke-width="1.5" d="`, color)
		for i, fr := range frames {
			x, y := f.point(fr[k])
			if i == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	gx0, gy0 := f.point(frames[0][0])
	gx1, gy1 := f.point(ground)
	fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=%q stroke-width=\"2\" stroke-dasharray=\"6,4\"/>\n",
		gx0, gy0, gx1, gy1, style.Ground)

	poses := [][][2]float64{frames[0]}
	if len(frames) > 1 {
		poses = append(poses, frames[len(frames)-1])
	}
	for i, pose := range poses {
		opacity := 1.0
		if i == 0 && len(poses) > 1 {
			opacity = 0.4
		}
		fmt.Fprintf(&sb, "<g stroke=%q stroke-width=\"3\" fill=%q opacity=\"%.1f\">\n<polyline fill=\"none\" points=\"",
			style.Links, style.Background, opacity)
		for k, p := range pose {
			x, y := f.point(p)
			if k > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		}
		sb.WriteString("\"/>\n")
		for _, p := range pose {
			x, y := f.point(p)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\"/>\n", x, y)
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
