package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/flowsim/internal/converge"
	"github.com/san-kum/flowsim/internal/experiment"
	"github.com/san-kum/flowsim/internal/integrators"
	"github.com/san-kum/flowsim/internal/model"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/storage"
	"github.com/san-kum/flowsim/internal/viz"
)

func setup(cmd *cobra.Command, args []string) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s simulation...\n", cfg.Model)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)
	for _, runErr := range result.Errors {
		logrus.WithError(runErr).Warn("run ended early")
	}

	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	meta := storage.RunMetadata{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		Timing:     exp.Timing(),
		Duration:   cfg.Duration,
		Columns:    exp.Model().Columns(),
		Params:     currentParams(exp.Model()),
		Metrics:    result.Metrics,
	}
	runID, err := archive.Save(meta, result.Records)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if final, ok := result.Final(); ok {
		fmt.Printf("final t: %g\n", final.Time)
	}
	fmt.Println("\nmetrics:")
	for _, name := range sortedNames(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" {
		return viz.RunPicker(func(def models.Definition) (viz.Live, error) {
			exp, err := setup(cmd, []string{def.Name})
			if err != nil {
				return viz.Live{}, err
			}
			return viz.NewLive(exp.Definition(), exp.GetSimulator(), exp.Timing())
		})
	}

	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}
	live, err := viz.NewLive(exp.Definition(), exp.GetSimulator(), exp.Timing())
	if err != nil {
		return err
	}
	return viz.Run(live)
}

func runConverge(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}
	seeker, crit, err := exp.Seeker()
	if err != nil {
		return err
	}

	start := time.Now()
	p, err := seeker.Converge(crit)
	if err != nil {
		return err
	}

	m := exp.Model()
	fmt.Printf("%s settled at t=%g after %d iterations (%v)\n\n", exp.Config().Model, p.Record.Time, seeker.Iterations(), time.Since(start).Round(time.Microsecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tVALUE")
	for _, id := range m.Columns() {
		kind, _, _ := m.Resolve(id)
		v, _ := m.Value(p.Record, id)
		fmt.Fprintf(w, "%s\t%s\t%.6g\n", id, kind, v)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}
	seeker, crit, err := exp.Seeker()
	if err != nil {
		return err
	}

	m := exp.Model()
	param := sweepParam
	if param == "" {
		param = exp.Definition().Sweep
	}
	p, ok := m.Parameter(param)
	if !ok || !p.Adjustable() {
		return fmt.Errorf("%q is not an adjustable parameter of %s", param, exp.Config().Model)
	}
	lo, hi := p.Range()
	if cmd.Flags().Changed("from") {
		lo = sweepFrom
	}
	if cmd.Flags().Changed("to") {
		hi = sweepTo
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%s has an unbounded range; pass --from and --to", param)
	}

	watch := exp.Config().Convergence.Variable
	if watch == "" {
		watch = exp.Definition().Focus
	}
	value := func(sp converge.SweepPoint) float64 {
		v, _ := m.Value(sp.Record, watch)
		return v
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if !hysteresis {
		points, err := seeker.Sweep(param, converge.Linspace(lo, hi, sweepSteps), crit, carry)
		if err != nil {
			return err
		}
		values := make([]float64, len(points))
		fmt.Fprintf(w, "%s\t%s\tITERATIONS\n", param, watch)
		for i, sp := range points {
			values[i] = value(sp)
			fmt.Fprintf(w, "%.6g\t%.6g\t%d\n", sp.Param, values[i], sp.Iterations)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(viz.PlotSeries(values, fmt.Sprintf("%s vs %s", watch, param), 60, 12))
		return nil
	}

	curve, err := seeker.Hysteresis(param, lo, hi, sweepSteps, crit)
	if err != nil {
		return err
	}
	n := len(curve.Up)
	up, down := make([]float64, n), make([]float64, n)
	fmt.Fprintf(w, "%s\tUP\tDOWN\tGAP\n", param)
	for i := range curve.Up {
		up[i], down[i] = value(curve.Up[i]), value(curve.Down[i])
	}
	for i := range curve.Up {
		d := down[n-1-i]
		fmt.Fprintf(w, "%.6g\t%.6g\t%.6g\t%.3g\n", curve.Up[i].Param, up[i], d, math.Abs(d-up[i]))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.PlotHysteresis(up, down, fmt.Sprintf("%s vs %s", watch, param), 60, 12))
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	names := args[1:]
	if len(names) == 0 {
		names = integrators.Names()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tFOCUS\tFINAL\tDRIFT")
	for _, name := range names {
		cfg, err := resolveConfig(cmd, args[:1])
		if err != nil {
			return err
		}
		cfg.Integrator = name
		if err := cfg.Validate(); err != nil {
			return err
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(experiment.NewRegistry()); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(cmd.Context())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		focus := exp.Definition().Focus
		final := math.NaN()
		if rec, ok := result.Final(); ok {
			final, _ = exp.Model().Value(rec, focus)
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%.6g\t%.3g\n", name, result.StepsTaken, elapsed.Round(time.Microsecond), focus, final, result.Metrics["stock_drift"])
	}
	return w.Flush()
}

func currentParams(m *model.Model) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range m.Parameters() {
		if p.Adjustable() {
			out[p.ID()] = p.Value()
		}
	}
	return out
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
