// Package experiment wires configuration, derivation, initial conditions
// and integration into one pipeline.
package experiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/config"
	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/initcond"
	"github.com/san-kum/linkage/internal/models"
	"github.com/san-kum/linkage/internal/sim"
)

type eqKey struct {
	links int
	drive bool
}

// Derived equations depend only on the link count and the drive flag, so
// they are shared between pipelines.
var (
	eqMu    sync.Mutex
	eqCache = make(map[eqKey]*models.Equations)
)

// Equations returns the symbolic equations for n links, deriving them on
// first use.
func Equations(n int, drive bool, log *zap.Logger) (*models.Equations, error) {
	eqMu.Lock()
	defer eqMu.Unlock()

	key := eqKey{links: n, drive: drive}
	if eqs, ok := eqCache[key]; ok {
		return eqs, nil
	}
	eqs, err := models.DeriveEquations(n, drive, log)
	if err != nil {
		return nil, err
	}
	eqCache[key] = eqs
	return eqs, nil
}

type Options struct {
	Logger   *zap.Logger
	Registry *Registry
}

// Pipeline holds everything derived from one configuration.
type Pipeline struct {
	cfg       *config.Config
	Equations *models.Equations
	System    *models.FourBar
	Problem   *initcond.Problem

	registry  *Registry
	observers []dynamo.Observer
	log       *zap.Logger
}

// Result is one run of a pipeline.
type Result struct {
	Initial dynamo.State
	// Closure is the loop residual at Initial.
	Closure    float64
	Raw        *dynamo.Result
	Trajectory *sim.Trajectory
	Metrics    map[string]float64
	Elapsed    time.Duration
}

// Build validates cfg, derives (or reuses) the equations and compiles them
// with the configured constants.
func Build(cfg *config.Config, opts Options) (*Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := opts.Registry.Factory(cfg.Integrator); err != nil {
		return nil, err
	}

	params := cfg.Params()
	eqs, err := Equations(params.Links(), params.Torque != 0, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	sys, err := models.NewFourBar(eqs, params)
	if err != nil {
		return nil, err
	}
	sys.SetLogger(opts.Logger)
	prob, err := initcond.NewProblem(eqs, params)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg.Clone(),
		Equations: eqs,
		System:    sys,
		Problem:   prob,
		registry:  opts.Registry,
		log:       opts.Logger,
	}, nil
}

func (p *Pipeline) Config() *config.Config { return p.cfg }

func (p *Pipeline) AddObserver(o dynamo.Observer) { p.observers = append(p.observers, o) }

func (p *Pipeline) solveOptions() initcond.Options {
	return initcond.Options{
		Tolerance:     p.cfg.Init.Tolerance,
		MaxIterations: p.cfg.Init.MaxIterations,
		Logger:        p.log,
	}
}

// Initial solves the closure for the configured crank angle and guess.
func (p *Pipeline) Initial(ctx context.Context) (dynamo.State, error) {
	return initcond.Solve(ctx, p.Problem, p.cfg.Seed(), p.cfg.Guess(), p.solveOptions())
}

// Run solves the initial state and integrates from it. On failure the
// result carries whatever was computed before the error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	x0, err := p.Initial(ctx)
	if err != nil {
		res := &Result{Initial: x0}
		if x0 != nil {
			res.Closure = p.System.ConstraintResidual(x0)
		}
		return res, err
	}
	return p.Simulate(ctx, x0)
}

// Simulate integrates from x0 with the configured integrator.
func (p *Pipeline) Simulate(ctx context.Context, x0 dynamo.State) (*Result, error) {
	integ, err := p.registry.GetIntegrator(p.cfg.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(p.System, integ)
	s.SetLogger(p.log)
	for _, m := range DefaultMetrics(p.System) {
		s.AddMetric(m)
	}
	for _, o := range p.observers {
		s.AddObserver(o)
	}

	start := time.Now()
	raw, err := s.Run(ctx, x0, p.cfg.SimConfig())
	res := &Result{
		Initial: x0,
		Closure: p.System.ConstraintResidual(x0),
		Raw:     raw,
		Elapsed: time.Since(start),
	}
	if raw != nil {
		res.Trajectory = sim.NewTrajectory(raw)
		res.Metrics = raw.Metrics
	}

	p.log.Info("simulation finished",
		zap.String("integrator", p.cfg.Integrator),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("closure", res.Closure),
		zap.Error(err))
	return res, err
}

// Sweep runs the pipeline for several crank angles in parallel. Each
// initial state is solved from the previous one, so the sweep stays on
// the branch selected by the configured guess.
func (p *Pipeline) Sweep(ctx context.Context, cranksDeg []float64, workers int) ([]*Result, error) {
	x0s := make([]dynamo.State, len(cranksDeg))
	guess := p.cfg.Guess()
	n := p.System.Links()
	for i, deg := range cranksDeg {
		cfg := p.cfg.Clone()
		cfg.Init.CrankDeg = deg
		x0, err := initcond.Solve(ctx, p.Problem, cfg.Seed(), guess, p.solveOptions())
		if err != nil {
			return nil, fmt.Errorf("crank %g°: %w", deg, err)
		}
		x0s[i] = x0
		guess = append([]float64(nil), x0[1:n]...)
	}

	factory, err := p.registry.Factory(p.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ens := sim.NewEnsemble(p.System, factory).
		WithMetrics(func() []dynamo.Metric { return DefaultMetrics(p.System) }).
		WithWorkers(workers)

	start := time.Now()
	raws, err := ens.Run(ctx, x0s, p.cfg.SimConfig())
	if err != nil {
		return nil, err
	}
	p.log.Info("sweep finished",
		zap.Int("runs", len(raws)),
		zap.Duration("elapsed", time.Since(start)))

	out := make([]*Result, len(raws))
	for i, raw := range raws {
		out[i] = &Result{
			Initial:    x0s[i],
			Closure:    p.System.ConstraintResidual(x0s[i]),
			Raw:        raw,
			Trajectory: sim.NewTrajectory(raw),
			Metrics:    raw.Metrics,
		}
	}
	return out, nil
}
