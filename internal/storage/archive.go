// Package storage archives finished runs and exports them.
package storage

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/flowsim/internal/dynamo"
	"github.com/san-kum/flowsim/internal/model"
)

var ErrRunNotFound = errors.New("storage: run not found")

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Timestamp  time.Time          `json:"timestamp"`
	Integrator string             `json:"integrator"`
	Timing     dynamo.Timing      `json:"timing"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Columns    []string           `json:"columns"`
	Params     map[string]float64 `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Series is an archived run in tabular form: one row per record in
// Columns order, with the record times alongside.
type Series struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Column returns the values of one named column.
func (s *Series) Column(name string) ([]float64, bool) {
	idx := -1
	for i, c := range s.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// Archive is a run store. Implementations are not safe for concurrent use.
type Archive interface {
	Init() error
	Save(meta RunMetadata, records []model.Record) (string, error)
	List() ([]RunMetadata, error)
	Load(runID string) (*RunMetadata, error)
	LoadSeries(runID string) (*Series, error)
	Close() error
}

// Open returns the archive backend kind rooted at dir.
func Open(kind, dir string) (Archive, error) {
	switch strings.ToLower(kind) {
	case "", "fs", "file":
		return New(dir), nil
	case "sqlite":
		return NewSQLite(filepath.Join(dir, "runs.db"))
	default:
		return nil, fmt.Errorf("storage: unknown archive backend %q", kind)
	}
}

// prepare fills in the id, timestamp and step count of a run about to be
// saved. Non-finite metrics are dropped since JSON cannot carry them.
func prepare(meta RunMetadata, records []model.Record) RunMetadata {
	if len(meta.Metrics) > 0 {
		finite := make(map[string]float64, len(meta.Metrics))
		for name, v := range meta.Metrics {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				logrus.WithFields(logrus.Fields{"metric": name, "value": v}).Warn("dropping non-finite metric")
				continue
			}
			finite[name] = v
		}
		meta.Metrics = finite
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d_%s", meta.Model, meta.Timestamp.Unix(), uuid.NewString()[:8])
	}
	meta.Steps = len(records)
	return meta
}

func header(columns []string) []string {
	return append([]string{"time"}, columns...)
}
