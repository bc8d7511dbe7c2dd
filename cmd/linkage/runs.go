package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/analysis"
	"github.com/san-kum/linkage/internal/config"
	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/experiment"
	"github.com/san-kum/linkage/internal/export"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/models"
	"github.com/san-kum/linkage/internal/sim"
	"github.com/san-kum/linkage/internal/storage"
	"github.com/san-kum/linkage/internal/viz"
)

var (
	phaseAxes []int
	checkTol  float64
	outFile   string
	svgWidth  int
	svgHeight int
)

func trajectory(raw *dynamo.Result) *sim.Trajectory {
	return sim.NewTrajectory(raw)
}

// configFromMeta rebuilds the configuration a stored run was made with.
func configFromMeta(meta *storage.RunMetadata) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = meta.Preset
	cfg.Integrator = meta.Integrator
	cfg.Linkage = config.LinkageConfig{
		Lengths:  meta.Lengths,
		Masses:   meta.Masses,
		Inertias: meta.Inertias,
		Gravity:  meta.Gravity,
		Torque:   meta.Torque,
	}
	cfg.Init.CrankDeg = meta.CrankDeg
	cfg.Init.GuessDeg = nil
	cfg.Sim.Duration = meta.Duration
	cfg.Sim.RTol = meta.RTol
	cfg.Sim.ATol = meta.ATol
	cfg.Sim.SampleDt = meta.SampleDt
	return cfg
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(res.States) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, res, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tINTEGRATOR\tCRANK\tDURATION\tSTEPS\tTIMESTAMP\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if r.Failure != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g°\t%gs\t%d\t%s\t%s\n", r.ID, r.Preset, r.Integrator,
			r.CrankDeg, r.Duration, r.Steps, r.Timestamp.Format("2006-01-02 15:04:05"), status)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	tr := trajectory(res)
	dim := len(res.States[0])
	n := dim / 2

	fmt.Printf("run: %s  preset: %s  samples: %d\n\n", meta.ID, meta.Preset, tr.Len())

	if len(phaseAxes) > 0 {
		if len(phaseAxes) != 2 || phaseAxes[0] >= dim || phaseAxes[1] >= dim || phaseAxes[0] < 0 || phaseAxes[1] < 0 {
			return fmt.Errorf("--phase needs two state indices below %d", dim)
		}
		states := make([][]float64, len(res.States))
		for i, x := range res.States {
			states[i] = x
		}
		portrait, err := analysis.NewPhasePortrait(states, phaseAxes[0], phaseAxes[1])
		if err != nil {
			return err
		}
		cols := storage.Header(dim, false)
		fmt.Printf("phase portrait: %s vs %s\n", cols[1+phaseAxes[1]], cols[1+phaseAxes[0]])
		fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 24))
		return nil
	}

	_, end := tr.Span()
	angles := make([][]float64, n)
	for i := range angles {
		angles[i] = viz.Degrees(tr.Column(i))
	}
	fmt.Println(viz.PlotMany(angles, viz.AngleCaption(n, end), 80, 15))
	fmt.Println()
	fmt.Println(viz.Plot(tr.Column(n), "ω0 [rad/s]", 80, 8))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	tr := trajectory(res)
	crank := tr.Column(0)

	if ps := analysis.PowerSpectrum(crank); len(ps) >= 2 {
		fmt.Println(viz.Plot(ps[:max(len(ps)/8, 2)], "power spectrum (θ0)", 80, 12))
		fmt.Println()
	}

	period, err := analysis.DominantPeriod(tr.Times, crank)
	if err != nil {
		log.Warn("spectral estimate unavailable", zap.String("run", meta.ID), zap.Error(err))
	} else {
		fmt.Printf("dominant period (fft):       %.4f s\n", period)
	}

	mean := 0.0
	for _, v := range crank {
		mean += v
	}
	mean /= float64(len(crank))
	if p, err := analysis.PeriodFromCrossings(tr.Times, crank, mean); err == nil {
		fmt.Printf("period (mean crossings):     %.4f s\n", p)
	}
	if p, err := analysis.PeriodFromCrossings(tr.Times, crank, math.Pi); err == nil {
		fmt.Printf("period (crossings of 180°):  %.4f s\n", p)
	}
	return nil
}

func checkRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	cfg := configFromMeta(meta)
	eqs, err := experiment.Equations(len(cfg.Linkage.Masses), cfg.Linkage.Torque != 0, log)
	if err != nil {
		return err
	}
	sys, err := models.NewFourBar(eqs, cfg.Params())
	if err != nil {
		return err
	}
	sys.SetLogger(log)

	worst, at := 0.0, 0.0
	e0 := sys.Energy(res.States[0])
	drift := 0.0
	for i, x := range res.States {
		if r := sys.ConstraintResidual(x); r > worst || math.IsNaN(r) {
			worst, at = r, res.Times[i]
		}
		drift = math.Max(drift, math.Abs(sys.Energy(x)-e0))
	}
	fmt.Printf("run: %s  samples: %d\n", meta.ID, len(res.States))
	fmt.Printf("max closure residual: %.3g at t=%.4g\n", worst, at)
	fmt.Printf("max energy deviation: %.3g (initial %.6g)\n", drift, e0)
	if !(worst <= checkTol) {
		return fmt.Errorf("closure residual %.3g exceeds %.3g", worst, checkTol)
	}
	return nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, res); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, storage.NewExportData(meta.Preset, meta.Integrator, meta.Duration, res)); err != nil {
		done()
		return err
	}
	return done()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	n := len(meta.Lengths) - 1
	frames := make([][][2]float64, len(res.States))
	for i, x := range res.States {
		frames[i] = linkage.JointPositions(meta.Lengths, x[:n])
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := export.LinkageSVG(w, meta.Lengths, frames, svgWidth, svgHeight, export.DefaultStyle); err != nil {
		done()
		return err
	}
	return done()
}
