package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/config"
	"github.com/san-kum/linkage/internal/experiment"
	"github.com/san-kum/linkage/internal/storage"
	"github.com/san-kum/linkage/internal/sym"
	"github.com/san-kum/linkage/internal/viz"
)

var (
	sweepCranks  []float64
	sweepWorkers int
	theme        string
	latex        bool
	links        int
	drive        bool
	precision    int
)

func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

func metadata(cfg *config.Config, res *experiment.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:     cfg.Name,
		Integrator: cfg.Integrator,
		Lengths:    cfg.Linkage.Lengths,
		Masses:     cfg.Linkage.Masses,
		Inertias:   cfg.Linkage.Inertias,
		Gravity:    cfg.Linkage.Gravity,
		Torque:     cfg.Linkage.Torque,
		CrankDeg:   cfg.Init.CrankDeg,
		Duration:   cfg.Sim.Duration,
		RTol:       cfg.Sim.RTol,
		ATol:       cfg.Sim.ATol,
		SampleDt:   cfg.Sim.SampleDt,
	}
	if res != nil {
		meta.Closure = res.Closure
	}
	return meta
}

func printMetrics(m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %.6g\n", k, m[k])
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pipe, err := experiment.Build(cfg, experiment.Options{Logger: log})
	if err != nil {
		return err
	}

	fmt.Printf("preset: %s  integrator: %s  duration: %gs\n", cfg.Name, cfg.Integrator, cfg.Sim.Duration)
	res, runErr := pipe.Run(cmd.Context())
	if res == nil {
		return runErr
	}
	if res.Initial != nil {
		n := pipe.System.Links()
		fmt.Print("initial:")
		for i := 0; i < n; i++ {
			fmt.Printf("  θ%d=%.6f°", i, toDeg(res.Initial[i]))
		}
		fmt.Printf("\nclosure residual: %.3g\n", res.Closure)
	}
	if res.Raw == nil {
		return runErr
	}

	fmt.Printf("steps: %d  rejected: %d  samples: %d  elapsed: %s\n",
		res.Raw.StepsTaken, res.Raw.Rejected, res.Trajectory.Len(), res.Elapsed)
	printMetrics(res.Metrics)

	if noSave {
		return runErr
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := metadata(pipe.Config(), res)
	if runErr != nil {
		meta.Failure = runErr.Error()
	}
	runID, err := st.Save(meta, res.Raw)
	if err != nil {
		return err
	}
	log.Info("run stored", zap.String("id", runID), zap.String("dir", dataDir))
	fmt.Printf("\nrun id: %s\n", runID)
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pipe, err := experiment.Build(cfg, experiment.Options{Logger: log})
	if err != nil {
		return err
	}
	results, err := pipe.Sweep(cmd.Context(), sweepCranks, sweepWorkers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CRANK\tθ1\tθ2\tSTEPS\tCRANK RANGE\tENERGY DRIFT\tCLOSURE")
	for i, r := range results {
		fmt.Fprintf(w, "%g°\t%.3f°\t%.3f°\t%d\t%.2f°\t%.3g\t%.3g\n",
			sweepCranks[i], toDeg(r.Initial[1]), toDeg(r.Initial[2]), r.Raw.StepsTaken,
			toDeg(r.Metrics["crank_range"]), r.Metrics["energy_drift"], r.Metrics["constraint_residual"])
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tREJECTED\tENERGY DRIFT\tCLOSURE\tELAPSED\tERROR")
	for _, name := range args {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Integrator = name
		if err := cfg.Validate(); err != nil {
			return err
		}
		pipe, err := experiment.Build(cfg, experiment.Options{Logger: log})
		if err != nil {
			return err
		}
		res, runErr := pipe.Run(cmd.Context())
		if res == nil || res.Raw == nil {
			return runErr
		}
		msg := "-"
		if runErr != nil {
			msg = runErr.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3g\t%.3g\t%s\t%s\n", name,
			res.Raw.StepsTaken, res.Raw.Rejected,
			res.Metrics["energy_drift"], res.Metrics["constraint_residual"], res.Elapsed, msg)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var res *experiment.Result
	if len(args) == 1 {
		st := storage.New(dataDir)
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		cfg = configFromMeta(meta)
		raw, err := st.LoadResult(args[0])
		if err != nil {
			return err
		}
		res = &experiment.Result{Raw: raw}
	}

	pipe, err := experiment.Build(cfg, experiment.Options{Logger: log})
	if err != nil {
		return err
	}
	if res == nil {
		res, err = pipe.Run(cmd.Context())
		if err != nil {
			return err
		}
	}
	tr := trajectory(res.Raw)
	return viz.Play(viz.NewPlayer(cfg.Name, pipe.System, tr).WithTheme(theme))
}

func printEquations(cmd *cobra.Command, args []string) error {
	eqs, err := experiment.Equations(links, drive, log)
	if err != nil {
		return err
	}
	p := sym.Printer{Precision: precision}
	if latex {
		p.Format = sym.LaTeX
	}

	fmt.Println("mass matrix:")
	fmt.Println(p.SprintMatrix(eqs.MassMatrix))
	fmt.Println()
	fmt.Println("forcing vector:")
	fmt.Println(p.SprintVector(eqs.Forcing))
	fmt.Println()
	fmt.Println("energy:")
	fmt.Println(p.Sprint(eqs.Energy))
	fmt.Println()
	fmt.Println("loop closure:")
	fmt.Println(p.SprintVector(eqs.Closure))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLENGTHS\tMASSES\tTORQUE\tCRANK\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name)
		desc := c.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(w, "%s\t%v\t%v\t%g\t%g°\t%s\n", name, c.Linkage.Lengths, c.Linkage.Masses,
			c.Linkage.Torque, c.Init.CrankDeg, desc)
	}
	return w.Flush()
}
