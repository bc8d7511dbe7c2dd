// Package analysis inspects recorded runs.
//
//   - [DominantPeriod]: period of the strongest oscillation via FFT
//   - [PeriodFromCrossings], [Crossings]: level crossings of a component
//   - [NewPhasePortrait], [PhasePortraitToASCII]: 2D phase space plots
//
// # Crank period
//
//	q0 := traj.Column(0)
//	period, err := analysis.DominantPeriod(traj.Times, q0)
package analysis
