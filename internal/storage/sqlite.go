package storage

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/san-kum/flowsim/internal/model"
)

// SQLite keeps every run in one database file: a runs table with the
// metadata as JSON and a records table with one row per record. Record
// values are packed little-endian float64s so NaN and Inf survive.
type SQLite struct {
	db   *sql.DB
	path string
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "runs.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Init() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		metadata BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		time REAL NOT NULL,
		row BLOB NOT NULL,
		PRIMARY KEY (run_id, step)
	)`); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Save(meta RunMetadata, records []model.Record) (id string, retErr error) {
	meta = prepare(meta, records)
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(`INSERT INTO runs(id, model, created_at, metadata) VALUES(?,?,?,?)`,
		meta.ID, meta.Model, meta.Timestamp.UnixNano(), payload); err != nil {
		return "", fmt.Errorf("insert run %s: %w", meta.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records(run_id, step, time, row) VALUES(?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range records {
		if _, err := stmt.Exec(meta.ID, i, rec.Time, encodeRow(rec.Row())); err != nil {
			return "", fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *SQLite) List() ([]RunMetadata, error) {
	rows, err := s.db.Query(`SELECT metadata FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var meta RunMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLite) Load(runID string) (*RunMetadata, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT metadata FROM runs WHERE id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("select run %s: %w", runID, err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *SQLite) LoadSeries(runID string) (*Series, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT time, row FROM records WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	series := &Series{Columns: meta.Columns}
	for rows.Next() {
		var t float64
		var payload []byte
		if err := rows.Scan(&t, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row, err := decodeRow(payload)
		if err != nil {
			return nil, err
		}
		series.Times = append(series.Times, t)
		series.Rows = append(series.Rows, row)
	}
	return series, rows.Err()
}

func encodeRow(row []float64) []byte {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeRow(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("storage: record payload of %d bytes", len(buf))
	}
	row := make([]float64, len(buf)/8)
	for i := range row {
		row[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return row, nil
}
