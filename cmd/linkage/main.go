package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/config"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	integrator string
	crankDeg   float64
	guessDeg   []float64
	torque     float64
	duration   float64
	rtol       float64
	atol       float64
	sampleDt   float64
	noSave     bool

	log *zap.Logger
)

// main registers the commands and runs the one named on the command line.
func main() {
	rootCmd := &cobra.Command{
		Use:           "linkage",
		Short:         "four-bar linkage dynamics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			log, err = newLogger(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".linkage", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "solve the initial state and simulate",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "simulate several crank angles in parallel",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepCranks, "cranks", []float64{60, 85, 110}, "crank angles in degrees")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator]...",
		Short: "run one configuration with several integrators",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	liveCmd := &cobra.Command{
		Use:   "live [run_id]",
		Short: "animate a stored run, or a fresh one without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	equationsCmd := &cobra.Command{
		Use:   "equations",
		Short: "print the mass matrix and forcing vector",
		Args:  cobra.NoArgs,
		RunE:  printEquations,
	}
	equationsCmd.Flags().BoolVar(&latex, "latex", false, "LaTeX output")
	equationsCmd.Flags().IntVar(&links, "links", 3, "moving links in the loop")
	equationsCmd.Flags().BoolVar(&drive, "drive", false, "include the crank torque")
	equationsCmd.Flags().IntVar(&precision, "precision", 0, "significant digits of constants (0 = shortest)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot joint angles of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntSliceVar(&phaseAxes, "phase", nil, "phase portrait of two state indices, e.g. 0,3")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "estimate the crank period",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	checkCmd := &cobra.Command{
		Use:   "check [run_id]",
		Short: "check loop closure along a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  checkRun,
	}
	checkCmd.Flags().Float64Var(&checkTol, "tol", 1e-3, "largest acceptable closure residual")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the joint paths of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width in pixels")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height in pixels")

	rootCmd.AddCommand(runCmd, sweepCmd, compareCmd, liveCmd, equationsCmd, presetsCmd,
		listCmd, plotCmd, analyzeCmd, checkCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "reference", "base preset ("+strings.Join(config.ListPresets(), ", ")+")")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	f.Float64Var(&crankDeg, "crank", config.DefaultCrankDeg, "initial crank angle in degrees")
	f.Float64SliceVar(&guessDeg, "guess", nil, "starting guess of the dependent angles in degrees")
	f.Float64Var(&torque, "torque", 0, "constant crank torque")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
	f.Float64Var(&rtol, "rtol", config.DefaultRTol, "relative tolerance")
	f.Float64Var(&atol, "atol", config.DefaultATol, "absolute tolerance")
	f.Float64Var(&sampleDt, "sample-dt", config.DefaultSampleDt, "output spacing in seconds (0 = every step)")
}

// loadConfig layers the preset, the config file and the flags set on the
// command line, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		var err error
		cfg, err = config.LoadInto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	f := cmd.Flags()
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("crank") {
		cfg.Init.CrankDeg = crankDeg
	}
	if f.Changed("guess") {
		cfg.Init.GuessDeg = guessDeg
	}
	if f.Changed("torque") {
		cfg.Linkage.Torque = torque
	}
	if f.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if f.Changed("rtol") {
		cfg.Sim.RTol = rtol
	}
	if f.Changed("atol") {
		cfg.Sim.ATol = atol
	}
	if f.Changed("sample-dt") {
		cfg.Sim.SampleDt = sampleDt
	}
	return cfg, cfg.Validate()
}
