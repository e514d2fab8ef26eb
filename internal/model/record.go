package model

// Record is one evaluation snapshot. Each slice is parallel to the model's
// corresponding collection.
type Record struct {
	Time      float64   `json:"time"`
	Stocks    []float64 `json:"stocks"`
	Flows     []float64 `json:"flows"`
	Variables []float64 `json:"variables"`
	Constants []float64 `json:"constants"`
}

func (r Record) Clone() Record {
	return Record{
		Time:      r.Time,
		Stocks:    append([]float64(nil), r.Stocks...),
		Flows:     append([]float64(nil), r.Flows...),
		Variables: append([]float64(nil), r.Variables...),
		Constants: append([]float64(nil), r.Constants...),
	}
}

// Row flattens the record in Model.Columns order.
func (r Record) Row() []float64 {
	row := make([]float64, 0, len(r.Stocks)+len(r.Flows)+len(r.Variables)+len(r.Constants))
	row = append(row, r.Stocks...)
	row = append(row, r.Flows...)
	row = append(row, r.Variables...)
	return append(row, r.Constants...)
}

// Value reads id from r.
func (m *Model) Value(r Record, id string) (float64, bool) {
	s, ok := m.index[id]
	if !ok {
		return 0, false
	}
	var src []float64
	switch s.kind {
	case KindStock:
		src = r.Stocks
	case KindFlow:
		src = r.Flows
	case KindVariable:
		src = r.Variables
	case KindConstant:
		src = r.Constants
	}
	if s.idx >= len(src) {
		return 0, false
	}
	return src[s.idx], true
}
