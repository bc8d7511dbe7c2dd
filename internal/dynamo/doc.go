// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers
//   - [Hamiltonian], [Constrained]: optional diagnostics of a system
//   - [Metric], [Observer]: hooks called on every recorded state
//
// # Example
//
//	sys, _ := models.NewFourBar(eqs, params)
//	s := sim.New(sys, integrators.NewRK45())
//	result, _ := s.Run(ctx, x0, dynamo.DefaultConfig())
//
// # Errors
//
// Failures carry a sentinel ([ErrSingularMass], [ErrStepTooSmall], ...)
// wrapped in a [SimulationError] holding the step, time and state.
package dynamo
