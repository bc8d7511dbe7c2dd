package integrators

import (
	"testing"

	"github.com/san-kum/linkage/internal/dynamo"
)

type benchChain struct{}

func (b *benchChain) StateDim() int { return 20 }

func (b *benchChain) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	dx := make(dynamo.State, 20)
	for i := 0; i < 10; i++ {
		dx[i] = x[10+i]
		dx[10+i] = -x[i] * 0.1
	}
	return dx, nil
}

func benchmarkStep(b *testing.B, integ dynamo.Integrator, sys dynamo.System, x dynamo.State, dt float64) {
	b.Helper()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := integ.Step(sys, x, 0, dt)
		if err != nil {
			b.Fatal(err)
		}
		x = next
	}
}

func BenchmarkEuler(b *testing.B) {
	benchmarkStep(b, NewEuler(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01)
}

func BenchmarkRK4(b *testing.B) {
	benchmarkStep(b, NewRK4(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01)
}

func BenchmarkRK45(b *testing.B) {
	benchmarkStep(b, NewRK45(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01)
}

func BenchmarkVerlet(b *testing.B) {
	benchmarkStep(b, NewVerlet(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01)
}

func BenchmarkLeapfrog(b *testing.B) {
	benchmarkStep(b, NewLeapfrog(), &harmonicOscillator{}, dynamo.State{1, 0}, 0.01)
}

func chainState() dynamo.State {
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}
	return x
}

func BenchmarkRK4_Chain10(b *testing.B) {
	benchmarkStep(b, NewRK4(), &benchChain{}, chainState(), 0.001)
}

func BenchmarkLeapfrog_Chain10(b *testing.B) {
	benchmarkStep(b, NewLeapfrog(), &benchChain{}, chainState(), 0.001)
}
