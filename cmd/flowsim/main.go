package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/flowsim/internal/config"
	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/storage"
)

var (
	dataDir     string
	archiveKind string
	logLevel    string

	configFile string
	preset     string
	integrator string
	duration   float64
	stepSize   float64
	subSteps   int
	stepsPerS  float64
	params     map[string]string

	variable  string
	tolerance float64
	maxIter   int

	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int
	hysteresis bool
	carry      bool

	plotVars  []string
	phaseVars []string
	outPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "flowsim",
		Short:         "stock and flow simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flowsim", "archive directory")
	rootCmd.PersistentFlags().StringVar(&archiveKind, "archive", "fs", "archive backend (fs, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and archive it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation in real time in the terminal",
		Long:  "run a simulation in real time in the terminal. Without a model a picker lists the catalogue.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	convergeCmd := &cobra.Command{
		Use:   "converge [model]",
		Short: "advance a model until it settles and print the steady state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConverge,
	}
	addRunFlags(convergeCmd)
	addConvergeFlags(convergeCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "converge across a range of parameter values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	addConvergeFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "parameter to sweep (default: the model's sweep parameter)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value (default: parameter minimum)")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 0, "last value (default: parameter maximum)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 11, "number of values per branch")
	sweepCmd.Flags().BoolVar(&hysteresis, "hysteresis", false, "sweep up then back down, carrying state")
	sweepCmd.Flags().BoolVar(&carry, "carry", false, "start each point from the previous equilibrium")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator...]",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot archived run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotVars, "var", nil, "columns to plot (default: the model's focus)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export an archived run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: <run_id>.json, - for stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render an archived run as an SVG chart",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringSliceVar(&plotVars, "var", nil, "columns to draw (default: the model's stocks)")
	exportSVGCmd.Flags().StringSliceVar(&phaseVars, "phase", nil, "draw a phase portrait of two columns, x,y")
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: <run_id>.svg)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, liveCmd, convergeCmd, sweepCmd, compareCmd, listCmd, plotCmd, exportJSONCmd, exportSVGCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration")
	cmd.Flags().Float64Var(&stepSize, "step", 0, "simulated time per emitted step (default: model timing)")
	cmd.Flags().IntVar(&subSteps, "substeps", 0, "unreported sub-steps per emitted step")
	cmd.Flags().Float64Var(&stepsPerS, "sps", 0, "emitted steps per wall-clock second")
	cmd.Flags().StringToStringVarP(&params, "set", "s", nil, "parameter overrides, id=value")
}

func addConvergeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&variable, "var", "", "id watched for convergence (default: the model's focus)")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "largest change per step that counts as settled")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration limit per convergence (default: config)")
}

// resolveConfig layers defaults, preset, config file and changed flags, in
// that order, and validates the result.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Model != args[0] {
			return nil, fmt.Errorf("config %s is for model %s, not %s", configFile, loaded.Model, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("step") || flags.Changed("substeps") || flags.Changed("sps") {
		def, err := models.Lookup(cfg.Model)
		if err != nil {
			return nil, err
		}
		_, modelTiming := def.Build()
		cfg.Timing = overrideTiming(cmd, cfg.TimingFor(modelTiming))
	}
	for id, raw := range params {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", id, err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[id] = v
	}
	if flags.Lookup("var") != nil {
		if flags.Changed("var") {
			cfg.Convergence.Variable = variable
		}
		if flags.Changed("tol") {
			cfg.Convergence.Tolerance = tolerance
		}
		if flags.Changed("max-iter") {
			cfg.Convergence.MaxIterations = maxIter
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"model":      cfg.Model,
		"integrator": cfg.Integrator,
		"duration":   cfg.Duration,
	}).Debug("resolved config")
	return cfg, nil
}

func overrideTiming(cmd *cobra.Command, t dynamo.Timing) dynamo.Timing {
	flags := cmd.Flags()
	if flags.Changed("step") {
		t.StepSize = stepSize
	}
	if flags.Changed("substeps") {
		t.SubSteps = subSteps
	}
	if flags.Changed("sps") {
		t.StepsPerSecond = stepsPerS
	}
	return t
}

func openArchive() (storage.Archive, error) {
	a, err := storage.Open(archiveKind, dataDir)
	if err != nil {
		return nil, err
	}
	if err := a.Init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
