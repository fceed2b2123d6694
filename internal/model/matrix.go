package model

import "github.com/rotisserie/eris"

// DecisionMatrix holds alternatives (rows) against criteria (columns). Rows
// are keyed by alternative id in the same order as Values.
//
// Normalized tracks whether column normalization has been applied. Every rank
// score must come from a matrix normalized exactly once, so normalization is
// refused on an already-normalized matrix rather than silently re-applied.
type DecisionMatrix struct {
	Alternatives []string    `json:"alternatives"`
	Criteria     []Criterion `json:"criteria"`
	Values       [][]float64 `json:"values"`
	Normalized   bool        `json:"normalized"`
}

// NewDecisionMatrix validates shape and builds a raw (unnormalized) matrix.
func NewDecisionMatrix(alternatives []string, criteria []Criterion, values [][]float64) (*DecisionMatrix, error) {
	if len(alternatives) == 0 {
		return nil, eris.New("model: decision matrix has no alternatives")
	}
	if len(criteria) == 0 {
		return nil, eris.New("model: decision matrix has no criteria")
	}
	if len(values) != len(alternatives) {
		return nil, eris.Errorf("model: decision matrix has %d rows for %d alternatives", len(values), len(alternatives))
	}
	for i, row := range values {
		if len(row) != len(criteria) {
			return nil, eris.Errorf("model: decision matrix row %d (%s) has %d values for %d criteria",
				i, alternatives[i], len(row), len(criteria))
		}
	}
	return &DecisionMatrix{
		Alternatives: alternatives,
		Criteria:     criteria,
		Values:       values,
	}, nil
}

// Rows returns the number of alternatives.
func (m *DecisionMatrix) Rows() int { return len(m.Alternatives) }

// Cols returns the number of criteria.
func (m *DecisionMatrix) Cols() int { return len(m.Criteria) }

// Column copies criterion column j.
func (m *DecisionMatrix) Column(j int) []float64 {
	col := make([]float64, len(m.Values))
	for i, row := range m.Values {
		col[i] = row[j]
	}
	return col
}

// Clone deep-copies the matrix so normalization never mutates caller data.
func (m *DecisionMatrix) Clone() *DecisionMatrix {
	values := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = append([]float64(nil), row...)
	}
	return &DecisionMatrix{
		Alternatives: append([]string(nil), m.Alternatives...),
		Criteria:     append([]Criterion(nil), m.Criteria...),
		Values:       values,
		Normalized:   m.Normalized,
	}
}
