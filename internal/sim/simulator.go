// Package sim drives an integrator over a time span: adaptive step
// control, uniform output sampling, metrics and observers.
package sim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/dynamo"
)

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	log        *zap.Logger
}

func New(sys dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		log:        zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// SetLogger replaces the no-op logger.
func (s *Simulator) SetLogger(l *zap.Logger) {
	if l != nil {
		s.log = l
	}
}

// recorder collects output samples and feeds metrics and observers.
type recorder struct {
	s      *Simulator
	result *dynamo.Result
}

func (r *recorder) record(t float64, x, f dynamo.State) {
	r.result.Times = append(r.result.Times, t)
	r.result.States = append(r.result.States, x)
	if f != nil {
		r.result.Derivs = append(r.result.Derivs, f)
	}
	for _, m := range r.s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range r.s.observers {
		obs.OnStep(x, t)
	}
}

// Run integrates from x0 at t = 0 to cfg.Duration. Any failure stops the
// run and is returned as a *dynamo.SimulationError together with the
// partial result.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system %d",
			dynamo.ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, &dynamo.SimulationError{State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	result := &dynamo.Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}
	rec := &recorder{s: s, result: result}

	var err error
	if cfg.Adaptive {
		err = s.runAdaptive(ctx, x0.Clone(), cfg, rec)
	} else {
		err = s.runFixed(ctx, x0.Clone(), cfg, rec)
	}

	if n := len(result.States); n > 0 {
		if h, ok := s.sys.(dynamo.Hamiltonian); ok {
			e0 := h.Energy(result.States[0])
			e1 := h.Energy(result.States[n-1])
			if e0 != 0 {
				result.EnergyDrift = math.Abs(e1-e0) / math.Abs(e0)
			} else {
				result.EnergyDrift = math.Abs(e1 - e0)
			}
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.log.Debug("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Int("rejected", result.Rejected),
		zap.Int("samples", len(result.Times)),
		zap.Error(err))
	return result, err
}

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Dt < 0 || (!cfg.Adaptive && cfg.Dt == 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Adaptive {
		if cfg.Tol.Rel < 0 || cfg.Tol.Abs < 0 || cfg.Tol.Rel+cfg.Tol.Abs == 0 {
			return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", dynamo.ErrInvalidConfig)
		}
	}
	if cfg.MinDt < 0 || cfg.MaxDt < 0 || cfg.SampleDt < 0 || cfg.MaxSteps < 0 {
		return fmt.Errorf("%w: negative step limits", dynamo.ErrInvalidConfig)
	}
	if cfg.MaxDt > 0 && cfg.MaxDt < cfg.MinDt {
		return fmt.Errorf("%w: max dt %g below min dt %g", dynamo.ErrInvalidConfig, cfg.MaxDt, cfg.MinDt)
	}
	return nil
}

func (s *Simulator) fail(step int, t float64, x dynamo.State, err error) error {
	return &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
}

func canceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
	default:
		return nil
	}
}

func (s *Simulator) runAdaptive(ctx context.Context, x dynamo.State, cfg dynamo.Config, rec *recorder) error {
	result := rec.result
	t := 0.0
	end := cfg.Duration
	eps := 1e-12 * math.Max(1, end)

	f, err := s.sys.Derive(x, t)
	if err != nil {
		return s.fail(0, t, x, err)
	}
	rec.record(t, x, f)

	dt := cfg.Dt
	if dt == 0 {
		dt, err = s.initialStep(x, t, cfg)
		if err != nil {
			return s.fail(0, t, x, err)
		}
	}

	sample := 1
	attempts := 0
	for end-t > eps {
		if err := canceled(ctx); err != nil {
			return s.fail(result.StepsTaken, t, x, err)
		}
		if cfg.MaxSteps > 0 && attempts >= cfg.MaxSteps {
			return s.fail(result.StepsTaken, t, x, dynamo.ErrMaxSteps)
		}
		if cfg.MaxDt > 0 {
			dt = math.Min(dt, cfg.MaxDt)
		}
		last := t+dt >= end-eps
		if last {
			dt = end - t
		} else if dt < cfg.MinDt {
			return s.fail(result.StepsTaken, t, x,
				fmt.Errorf("%w: %g < %g", dynamo.ErrStepTooSmall, dt, cfg.MinDt))
		}

		res, err := s.attempt(x, t, dt, cfg.Tol)
		attempts++
		if err != nil {
			return s.fail(result.StepsTaken, t, x, err)
		}
		if !res.State.IsValid() || math.IsNaN(res.ErrNorm) {
			if cfg.ValidateState {
				return s.fail(result.StepsTaken, t, x, dynamo.ErrInvalidState)
			}
			result.Rejected++
			dt *= 0.2
			continue
		}
		if res.ErrNorm > 1 {
			result.Rejected++
			dt = res.NextDt
			continue
		}

		tNew := t + dt
		if last {
			tNew = end
		}
		if cfg.SampleDt > 0 {
			for {
				ts := float64(sample) * cfg.SampleDt
				if ts > tNew+eps || ts > end+eps {
					break
				}
				if math.Abs(ts-tNew) <= eps {
					rec.record(tNew, res.State.Clone(), res.Deriv1.Clone())
				} else {
					xs, fs := hermite(t, tNew, x, res.State, res.Deriv0, res.Deriv1, ts)
					rec.record(ts, xs, fs)
				}
				sample++
			}
		} else {
			rec.record(tNew, res.State.Clone(), res.Deriv1.Clone())
		}

		x = res.State
		f = res.Deriv1
		t = tNew
		dt = res.NextDt
		result.StepsTaken++
	}

	if n := len(result.Times); result.Times[n-1] < end-eps {
		rec.record(end, x.Clone(), f.Clone())
	}
	return nil
}

func (s *Simulator) initialStep(x dynamo.State, t float64, cfg dynamo.Config) (float64, error) {
	if ai, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return ai.InitialStep(s.sys, x, t, cfg.Tol)
	}
	return math.Min(cfg.Duration/100, 0.01), nil
}

// attempt tries one step of size dt. Integrators without an embedded error
// estimate are checked by step doubling.
func (s *Simulator) attempt(x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.StepResult, error) {
	if ai, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return ai.StepAdaptive(s.sys, x, t, dt, tol)
	}

	x1, err := s.integrator.Step(s.sys, x, t, dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}
	xHalf, err := s.integrator.Step(s.sys, x, t, dt/2)
	if err != nil {
		return dynamo.StepResult{}, err
	}
	x2, err := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	sum := 0.0
	for i := range x2 {
		scale := tol.Abs + tol.Rel*math.Max(math.Abs(x[i]), math.Abs(x2[i]))
		e := (x2[i] - x1[i]) / scale
		sum += e * e
	}
	errNorm := math.Sqrt(sum / float64(len(x2)))

	next := dt
	switch {
	case errNorm > 1:
		next = dt / 2
	case errNorm < 0.1:
		next = dt * 2
	}

	f0, err := s.sys.Derive(x, t)
	if err != nil {
		return dynamo.StepResult{}, err
	}
	f1, err := s.sys.Derive(x2, t+dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}
	return dynamo.StepResult{State: x2, Deriv0: f0, Deriv1: f1, ErrNorm: errNorm, NextDt: next}, nil
}

func (s *Simulator) runFixed(ctx context.Context, x dynamo.State, cfg dynamo.Config, rec *recorder) error {
	result := rec.result
	steps := int(math.Ceil(cfg.Duration/cfg.Dt - 1e-9))
	if cfg.MaxSteps > 0 && steps > cfg.MaxSteps {
		return s.fail(0, 0, x, fmt.Errorf("%w: %d steps needed", dynamo.ErrMaxSteps, steps))
	}

	t := 0.0
	rec.record(t, x.Clone(), nil)
	for i := 0; i < steps; i++ {
		if err := canceled(ctx); err != nil {
			return s.fail(i, t, x, err)
		}
		dt := cfg.Dt
		if i == steps-1 {
			dt = cfg.Duration - t
		}
		next, err := s.integrator.Step(s.sys, x, t, dt)
		if err != nil {
			return s.fail(i, t, x, err)
		}
		if cfg.ValidateState && !next.IsValid() {
			return s.fail(i, t, x, dynamo.ErrInvalidState)
		}
		x = next
		t = float64(i+1) * cfg.Dt
		if i == steps-1 {
			t = cfg.Duration
		}
		result.StepsTaken++
		rec.record(t, x.Clone(), nil)
	}
	return nil
}
