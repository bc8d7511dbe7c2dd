// Package metrics provides dynamo.Metric implementations for linkage runs.
package metrics

import (
	"math"

	"github.com/san-kum/linkage/internal/dynamo"
)

// EnergyDrift is the largest energy error seen so far, relative to the
// initial energy, or absolute when the initial energy is zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	sys           dynamo.Hamiltonian
}

func NewEnergyDrift(sys dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.sys.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current returns the most recent energy.
func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// ConstraintDrift is the largest constraint residual seen so far.
type ConstraintDrift struct {
	sys      dynamo.Constrained
	max      float64
	maxTime  float64
	samples  int
}

func NewConstraintDrift(sys dynamo.Constrained) *ConstraintDrift {
	return &ConstraintDrift{sys: sys}
}

func (c *ConstraintDrift) Name() string { return "constraint_residual" }

func (c *ConstraintDrift) Observe(x dynamo.State, t float64) {
	r := c.sys.ConstraintResidual(x)
	if c.samples == 0 || r > c.max || math.IsNaN(r) {
		c.max = r
		c.maxTime = t
	}
	c.samples++
}

func (c *ConstraintDrift) Value() float64 { return c.max }

// At returns the time of the largest residual.
func (c *ConstraintDrift) At() float64 { return c.maxTime }

func (c *ConstraintDrift) Reset() {
	c.max = 0
	c.maxTime = 0
	c.samples = 0
}
