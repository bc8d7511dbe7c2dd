package viz

import "math"

// LinkageViewport bounds every configuration of a closed loop with the
// given lengths, ground link last: joint k stays within reach of both
// the crank pivot at the origin and the ground pivot at (l_n, 0).
func LinkageViewport(lengths []float64) Viewport {
	n := len(lengths) - 1
	ground := lengths[n]
	v := Viewport{MinX: math.Min(0, ground), MaxX: math.Max(0, ground)}

	for k := 1; k < n; k++ {
		r1, r2 := 0.0, 0.0
		for j := 0; j < k; j++ {
			r1 += lengths[j]
		}
		for j := k; j < n; j++ {
			r2 += lengths[j]
		}
		lo := math.Max(-r1, ground-r2)
		hi := math.Min(r1, ground+r2)
		r := math.Min(r1, r2)
		if lo > hi {
			continue
		}
		v.MinX = math.Min(v.MinX, lo)
		v.MaxX = math.Max(v.MaxX, hi)
		v.MinY = math.Min(v.MinY, -r)
		v.MaxY = math.Max(v.MaxY, r)
	}
	return v
}

// DrawLinkage draws the moving links through joints and a dashed ground
// link from the first joint to the ground pivot.
func DrawLinkage(c *Canvas, v Viewport, joints [][2]float64, ground [2]float64) {
	if len(joints) == 0 {
		return
	}
	gx0, gy0 := v.Project(c, joints[0])
	gx1, gy1 := v.Project(c, ground)
	c.DrawDashed(gx0, gy0, gx1, gy1, 2)

	for k := 1; k < len(joints); k++ {
		x0, y0 := v.Project(c, joints[k-1])
		x1, y1 := v.Project(c, joints[k])
		c.DrawLine(x0, y0, x1, y1)
	}
	for _, p := range joints {
		x, y := v.Project(c, p)
		c.DrawRing(x, y)
	}
}
