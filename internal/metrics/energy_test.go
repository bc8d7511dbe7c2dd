package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/linkage/internal/dynamo"
)

type spring struct{}

func (s spring) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func (s spring) ConstraintResidual(x dynamo.State) float64 {
	return math.Abs(x[0]*x[0] + x[1]*x[1] - 1)
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(spring{})

	m.Observe(dynamo.State{1, 0}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after one sample, got %g", m.Value())
	}

	m.Observe(dynamo.State{1.1, 0}, 1)
	m.Observe(dynamo.State{1, 0}, 2)

	expected := (0.5*1.21 - 0.5) / 0.5
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected max drift %g, got %g", expected, m.Value())
	}
	if m.Current() != 0.5 {
		t.Errorf("expected current energy 0.5, got %g", m.Current())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyDriftZeroInitialEnergy(t *testing.T) {
	m := NewEnergyDrift(spring{})
	m.Observe(dynamo.State{0, 0}, 0)
	m.Observe(dynamo.State{0, 0.2}, 1)
	if math.Abs(m.Value()-0.02) > 1e-12 {
		t.Errorf("expected absolute drift 0.02, got %g", m.Value())
	}
}

func TestConstraintDrift(t *testing.T) {
	m := NewConstraintDrift(spring{})
	m.Observe(dynamo.State{1, 0}, 0)
	m.Observe(dynamo.State{0, 1.1}, 0.5)
	m.Observe(dynamo.State{0, 1}, 1)

	if math.Abs(m.Value()-0.21) > 1e-12 {
		t.Errorf("expected max residual 0.21, got %g", m.Value())
	}
	if m.At() != 0.5 {
		t.Errorf("expected max at t=0.5, got %g", m.At())
	}
	if m.Name() != "constraint_residual" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestRange(t *testing.T) {
	r := NewRange("", 1)
	if r.Name() != "range_x1" {
		t.Errorf("unexpected name %q", r.Name())
	}
	for _, v := range []float64{3, -1, 7, 2} {
		r.Observe(dynamo.State{0, v}, 0)
	}
	lo, hi := r.Bounds()
	if lo != -1 || hi != 7 || r.Value() != 8 {
		t.Errorf("bounds = [%g, %g] width %g", lo, hi, r.Value())
	}

	r.Reset()
	if r.Value() != 0 {
		t.Error("expected zero width after reset")
	}
}
