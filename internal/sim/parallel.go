package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/linkage/internal/dynamo"
)

// Ensemble runs one system from many initial states in parallel. The
// system must be safe for concurrent Derive calls; integrators are not, so
// each run gets its own from the factory.
type Ensemble struct {
	sys           dynamo.System
	newIntegrator func() dynamo.Integrator
	newMetrics    func() []dynamo.Metric
	workers       int
}

func NewEnsemble(sys dynamo.System, newIntegrator func() dynamo.Integrator) *Ensemble {
	return &Ensemble{sys: sys, newIntegrator: newIntegrator, workers: runtime.GOMAXPROCS(0)}
}

// WithMetrics sets a factory for per-run metrics.
func (e *Ensemble) WithMetrics(f func() []dynamo.Metric) *Ensemble {
	e.newMetrics = f
	return e
}

// WithWorkers bounds the number of concurrent runs.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	if n > 0 {
		e.workers = n
	}
	return e
}

// Run integrates every x0 with cfg. The first failure cancels the others.
func (e *Ensemble) Run(ctx context.Context, x0s []dynamo.State, cfg dynamo.Config) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, len(x0s))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, x0 := range x0s {
		i, x0 := i, x0
		g.Go(func() error {
			s := New(e.sys, e.newIntegrator())
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}
			res, err := s.Run(gctx, x0, cfg)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
