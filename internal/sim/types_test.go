package sim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/integrators"
)

func TestHermiteReproducesCubics(t *testing.T) {
	// x = t^3 on [0, 1]
	x, f := hermite(0, 1, dynamo.State{0}, dynamo.State{1}, dynamo.State{0}, dynamo.State{3}, 0.5)
	assert.InDelta(t, 0.125, x[0], 1e-15)
	assert.InDelta(t, 0.75, f[0], 1e-15)

	// x = 2 + t on [1, 3]
	x, f = hermite(1, 3, dynamo.State{3}, dynamo.State{5}, dynamo.State{1}, dynamo.State{1}, 2.5)
	assert.InDelta(t, 4.5, x[0], 1e-15)
	assert.InDelta(t, 1.0, f[0], 1e-15)
}

func TestTrajectoryAt(t *testing.T) {
	sim := New(&oscillator{}, integrators.NewRK45())
	result, err := sim.Run(context.Background(), dynamo.State{1, 0}, adaptiveConfig(2))
	require.NoError(t, err)

	tr := NewTrajectory(result)
	require.NotNil(t, tr.Derivs)
	t0, t1 := tr.Span()
	assert.Equal(t, 0.0, t0)
	assert.Equal(t, 2.0, t1)

	for _, at := range []float64{0, 0.05, 0.1, 1.234, 1.99, 2} {
		x, err := tr.At(at)
		require.NoError(t, err)
		assert.InDelta(t, math.Cos(at), x[0], 1e-6, "t=%g", at)
		assert.InDelta(t, -math.Sin(at), x[1], 1e-6, "t=%g", at)
	}

	_, err = tr.At(-0.1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = tr.At(2.1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.Len(t, tr.Column(0), tr.Len())
}

func TestTrajectoryLinear(t *testing.T) {
	tr := &Trajectory{
		Times:  []float64{0, 1, 3},
		States: []dynamo.State{{0, 10}, {1, 10}, {5, 4}},
	}
	x, err := tr.At(2)
	require.NoError(t, err)
	assert.Equal(t, dynamo.State{3, 7}, x)

	x, err = tr.At(1)
	require.NoError(t, err)
	x[0] = 99
	assert.Equal(t, 1.0, tr.States[1][0], "At must not alias samples")

	_, err = (&Trajectory{}).At(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
