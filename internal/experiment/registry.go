package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/integrators"
	"github.com/san-kum/linkage/internal/metrics"
	"github.com/san-kum/linkage/internal/models"
)

// ErrUnknownIntegrator is returned for names missing from a Registry.
var ErrUnknownIntegrator = errors.New("experiment: unknown integrator")

// Registry maps integrator names to constructors. Integrators keep scratch
// buffers, so every lookup returns a fresh one.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }

	return r
}

// Register adds or replaces an integrator.
func (r *Registry) Register(name string, fn func() dynamo.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

// Factory returns the constructor registered under name.
func (r *Registry) Factory(name string) (func() dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics tracks energy and closure drift and the sweep of the crank.
func DefaultMetrics(sys *models.FourBar) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergyDrift(sys),
		metrics.NewConstraintDrift(sys),
		metrics.NewRange("crank_range", 0),
	}
}
