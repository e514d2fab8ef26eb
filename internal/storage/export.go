package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/flowsim/internal/dynamo"
)

type ExportData struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Integrator string             `json:"integrator"`
	Timing     dynamo.Timing      `json:"timing"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Params     map[string]float64 `json:"params,omitempty"`
	Columns    []string           `json:"columns"`
	Times      []float64          `json:"times"`
	Rows       [][]float64        `json:"rows"`
	Metrics    map[string]float64 `json:"metrics"`
}

func NewExportData(meta *RunMetadata, series *Series) ExportData {
	return ExportData{
		ID:         meta.ID,
		Model:      meta.Model,
		Integrator: meta.Integrator,
		Timing:     meta.Timing,
		Duration:   meta.Duration,
		Steps:      len(series.Times),
		Params:     meta.Params,
		Columns:    series.Columns,
		Times:      series.Times,
		Rows:       series.Rows,
		Metrics:    meta.Metrics,
	}
}

// WriteJSON writes an archived run as indented JSON.
func WriteJSON(w io.Writer, meta *RunMetadata, series *Series) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, series))
}

func ExportJSON(path string, meta *RunMetadata, series *Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(file, meta, series); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
