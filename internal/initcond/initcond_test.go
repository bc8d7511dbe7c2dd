package initcond

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/models"
)

var (
	eqsOnce sync.Once
	eqs     *models.Equations
	eqsErr  error
)

func problem(t *testing.T, params linkage.Params) *Problem {
	t.Helper()
	eqsOnce.Do(func() { eqs, eqsErr = models.DeriveEquations(3, false, nil) })
	require.NoError(t, eqsErr)
	p, err := NewProblem(eqs, params)
	require.NoError(t, err)
	return p
}

func deg(d float64) float64 { return d * math.Pi / 180 }

func TestSolveReferenceSeed(t *testing.T) {
	params := linkage.ReferenceParams()
	p := problem(t, params)
	assert.Equal(t, 1, p.Independent())
	assert.Equal(t, 2, p.Dependent())

	x, err := Solve(context.Background(), p, []float64{deg(85)}, nil, Options{})
	require.NoError(t, err)
	require.Len(t, x, 6)

	assert.Equal(t, deg(85), x[0])
	assert.Equal(t, []float64{0, 0, 0}, []float64(x[3:]))

	l := params.Lengths
	dx := l[0]*math.Cos(x[0]) + l[1]*math.Cos(x[1]) + l[2]*math.Cos(x[2]) - l[3]
	dy := l[0]*math.Sin(x[0]) + l[1]*math.Sin(x[1]) + l[2]*math.Sin(x[2])
	assert.InDelta(t, 0, dx, 1e-6)
	assert.InDelta(t, 0, dy, 1e-6)
	assert.Less(t, p.Residual(x[:3]), 1e-6)
}

func TestZeroGuessReachesElbowUp(t *testing.T) {
	p := problem(t, linkage.ReferenceParams())

	x, err := Solve(context.Background(), p, []float64{deg(85)}, nil, Options{})
	require.NoError(t, err)
	toDeg := func(r float64) float64 { return r * 180 / math.Pi }
	assert.InDelta(t, 85, toDeg(x[0]), 1e-12)
	assert.InDelta(t, 31.302655, toDeg(x[1]), 1e-4)
	assert.InDelta(t, -42.721654, toDeg(x[2]), 1e-4)

	// an explicit guess near the same branch lands on the same state
	y, err := Solve(context.Background(), p, []float64{deg(85)}, []float64{deg(30), deg(-40)}, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64(x), []float64(y), 1e-8)
}

func TestGuessSelectsBranch(t *testing.T) {
	params := linkage.ReferenceParams()
	p := problem(t, params)
	seed := []float64{deg(85)}

	up, err := Solve(context.Background(), p, seed, []float64{deg(30), deg(-40)}, Options{})
	require.NoError(t, err)
	down, err := Solve(context.Background(), p, seed, []float64{deg(-60), deg(15)}, Options{})
	require.NoError(t, err)

	for _, x := range [][]float64{up, down} {
		dx, dy := linkage.ClosureResidual(params.Lengths, x[:3])
		assert.InDelta(t, 0, math.Hypot(dx, dy), 1e-9)
	}
	assert.Greater(t, up[1], 0.0)
	assert.Less(t, down[1], 0.0)

	// the coupler joint sits on opposite sides of the crank-to-ground line
	pu := linkage.JointPositions(params.Lengths, up[:3])
	pd := linkage.JointPositions(params.Lengths, down[:3])
	assert.Greater(t, pu[2][1], pd[2][1])
}

func TestUnassemblableReportsResidual(t *testing.T) {
	params := linkage.ReferenceParams()
	params.Lengths = []float64{1, 1, 1, 10}
	p := problem(t, params)

	x, err := Solve(context.Background(), p, []float64{deg(85)}, nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverged)

	var re *ResidualError
	require.True(t, errors.As(err, &re))
	assert.Greater(t, re.Residual, 1.0)
	assert.Equal(t, DefaultTolerance, re.Tolerance)
	assert.Equal(t, x, re.State)
}

func TestMinimizerAlone(t *testing.T) {
	p := problem(t, linkage.ReferenceParams())
	x, err := Solve(context.Background(), p, []float64{deg(120)}, nil, Options{NoPolish: true, Tolerance: 1e-4})
	require.NoError(t, err)
	assert.Less(t, p.Residual(x[:3]), 1e-4)
}

func TestSolveArguments(t *testing.T) {
	p := problem(t, linkage.ReferenceParams())

	_, err := Solve(context.Background(), p, []float64{1, 2}, nil, Options{})
	assert.ErrorIs(t, err, ErrBadSeed)

	_, err = Solve(context.Background(), p, []float64{1}, []float64{0}, Options{})
	assert.ErrorIs(t, err, ErrBadSeed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Solve(ctx, p, []float64{1}, nil, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProblemValidates(t *testing.T) {
	eqsOnce.Do(func() { eqs, eqsErr = models.DeriveEquations(3, false, nil) })
	require.NoError(t, eqsErr)

	params := linkage.ReferenceParams()
	params.Masses[1] = 0
	_, err := NewProblem(eqs, params)
	assert.ErrorIs(t, err, linkage.ErrInvalidParams)
}
