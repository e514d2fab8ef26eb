package viz

import "github.com/san-kum/flowsim/internal/model"

const historyCapacity = 600

// history keeps the most recent records as one series per column.
type history struct {
	capacity int
	times    []float64
	columns  [][]float64
}

func newHistory(columns, capacity int) *history {
	h := &history{capacity: capacity, columns: make([][]float64, columns)}
	for i := range h.columns {
		h.columns[i] = make([]float64, 0, capacity)
	}
	return h
}

func (h *history) push(rec model.Record) {
	row := rec.Row()
	h.times = appendBounded(h.times, rec.Time, h.capacity)
	for i := range h.columns {
		if i < len(row) {
			h.columns[i] = appendBounded(h.columns[i], row[i], h.capacity)
		}
	}
}

func (h *history) clear() {
	h.times = h.times[:0]
	for i := range h.columns {
		h.columns[i] = h.columns[i][:0]
	}
}

func (h *history) len() int { return len(h.times) }

func (h *history) column(i int) []float64 {
	if i < 0 || i >= len(h.columns) {
		return nil
	}
	return h.columns[i]
}

func appendBounded(s []float64, v float64, capacity int) []float64 {
	if len(s) >= capacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}
