package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/flowsim/internal/config"
	"github.com/san-kum/flowsim/internal/export"
	"github.com/san-kum/flowsim/internal/models"
	"github.com/san-kum/flowsim/internal/storage"
	"github.com/san-kum/flowsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCREATED\tDURATION\tSTEP\tSTEPS\tINTEG")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%s\t%s\n",
			run.ID,
			run.Model,
			humanize.Time(run.Timestamp),
			run.Duration,
			run.Timing.StepSize,
			humanize.Comma(int64(run.Steps)),
			run.Integrator,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	meta, err := archive.Load(args[0])
	if err != nil {
		return err
	}
	series, err := archive.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(series.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	vars := plotVars
	if len(vars) == 0 {
		if def, err := models.Lookup(meta.Model); err == nil {
			vars = []string{def.Focus}
		} else {
			vars = series.Columns[:1]
		}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d (t=%g..%g)\n\n", len(series.Rows), series.Times[0], series.Times[len(series.Times)-1])
	for _, id := range vars {
		values, ok := series.Column(id)
		if !ok {
			return fmt.Errorf("run %s has no column %q (have %s)", meta.ID, id, strings.Join(series.Columns, ", "))
		}
		fmt.Println(viz.PlotSeries(values, id, 80, 10))
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		fmt.Printf("  min %.6g  max %.6g  final %.6g\n\n", lo, hi, values[len(values)-1])
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	meta, err := archive.Load(args[0])
	if err != nil {
		return err
	}
	series, err := archive.LoadSeries(args[0])
	if err != nil {
		return err
	}

	switch outPath {
	case "-":
		return storage.WriteJSON(os.Stdout, meta, series)
	case "":
		outPath = meta.ID + ".json"
	}
	if err := storage.ExportJSON(outPath, meta, series); err != nil {
		return err
	}
	fmt.Printf("exported %d samples to %s\n", len(series.Rows), outPath)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	meta, err := archive.Load(args[0])
	if err != nil {
		return err
	}
	series, err := archive.LoadSeries(args[0])
	if err != nil {
		return err
	}
	column := func(id string) ([]float64, error) {
		values, ok := series.Column(id)
		if !ok {
			return nil, fmt.Errorf("run %s has no column %q", meta.ID, id)
		}
		return values, nil
	}

	var svg string
	if len(phaseVars) > 0 {
		if len(phaseVars) != 2 {
			return fmt.Errorf("--phase takes two columns, got %d", len(phaseVars))
		}
		xs, err := column(phaseVars[0])
		if err != nil {
			return err
		}
		ys, err := column(phaseVars[1])
		if err != nil {
			return err
		}
		if svg, err = export.PhaseSVG(phaseVars[0], xs, phaseVars[1], ys, 640, 640); err != nil {
			return err
		}
	} else {
		vars := plotVars
		if len(vars) == 0 {
			vars = stockColumns(meta.Model, series.Columns)
		}
		lines := make([]export.Line, 0, len(vars))
		for _, id := range vars {
			values, err := column(id)
			if err != nil {
				return err
			}
			lines = append(lines, export.Line{Name: id, Values: values})
		}
		if svg, err = export.TimeSeriesSVG(series.Times, lines, 800, 400); err != nil {
			return err
		}
	}

	if outPath == "" {
		outPath = meta.ID + ".svg"
	}
	if err := os.WriteFile(outPath, []byte(svg), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

// stockColumns returns the stock ids of a catalogue model, or the first
// archived column when the model is unknown.
func stockColumns(modelName string, columns []string) []string {
	def, err := models.Lookup(modelName)
	if err != nil {
		return columns[:1]
	}
	m, _ := def.Build()
	ids := make([]string, 0, len(m.Stocks()))
	for _, s := range m.Stocks() {
		ids = append(ids, s.ID)
	}
	return ids
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for model: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, name := range presets {
		p := config.GetPreset(args[0], name)
		var overrides []string
		for _, id := range sortedNames(p.Params) {
			overrides = append(overrides, fmt.Sprintf("%s=%g", id, p.Params[id]))
		}
		fmt.Printf("  %-14s %s\n", name, strings.Join(overrides, " "))
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tFOCUS\tSWEEP\tPARAMETERS\tDESCRIPTION")
	for _, name := range models.Names() {
		def, err := models.Lookup(name)
		if err != nil {
			return err
		}
		m, _ := def.Build()
		var ps []string
		for _, p := range m.Parameters() {
			if p.Adjustable() {
				lo, hi := p.Range()
				ps = append(ps, fmt.Sprintf("%s[%g,%g]", p.ID(), lo, hi))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, def.Focus, def.Sweep, strings.Join(ps, " "), def.Description)
	}
	return w.Flush()
}
