package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/linkage/internal/dynamo"
)

// Range tracks the extent of one state component. Its value is the
// width max - min.
type Range struct {
	name     string
	index    int
	min, max float64
	samples  int
}

func NewRange(name string, index int) *Range {
	if name == "" {
		name = fmt.Sprintf("range_x%d", index)
	}
	return &Range{name: name, index: index}
}

func (r *Range) Name() string { return r.name }

func (r *Range) Observe(x dynamo.State, t float64) {
	if r.index >= len(x) {
		return
	}
	v := x[r.index]
	if r.samples == 0 {
		r.min, r.max = v, v
	} else {
		r.min = math.Min(r.min, v)
		r.max = math.Max(r.max, v)
	}
	r.samples++
}

func (r *Range) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.max - r.min
}

// Bounds returns the smallest and largest values seen.
func (r *Range) Bounds() (float64, float64) { return r.min, r.max }

func (r *Range) Reset() {
	r.min, r.max = 0, 0
	r.samples = 0
}
