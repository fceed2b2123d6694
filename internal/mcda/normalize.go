// Package mcda implements the multi-criteria ranking stack: criteria
// normalization, AHP weight derivation with consistency checking,
// weighted-sum and TOPSIS ranking, and sensitivity analysis. All operations
// are pure functions over a decision matrix and spec.
package mcda

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/pelagica/zoneplan/internal/model"
)

// NormMethod selects the column normalization scheme.
type NormMethod string

const (
	// MinMax rescales each column to [0, 1]; cost columns are inverted.
	MinMax NormMethod = "minmax"
	// Vector divides each column by its Euclidean norm; cost columns are
	// replaced by their reciprocals first.
	Vector NormMethod = "vector"
)

// Normalize returns a new matrix with every criterion column normalized
// exactly once. Normalizing an already-normalized matrix is refused: a rank
// score must never come from a twice-normalized row.
func Normalize(m *model.DecisionMatrix, method NormMethod) (*model.DecisionMatrix, error) {
	if m.Normalized {
		return nil, eris.New("mcda: matrix is already normalized")
	}
	out := m.Clone()

	for j, crit := range out.Criteria {
		col := out.Column(j)
		switch method {
		case MinMax:
			if err := normalizeMinMax(col, crit); err != nil {
				return nil, err
			}
		case Vector:
			if err := normalizeVector(col, crit); err != nil {
				return nil, err
			}
		default:
			return nil, eris.Errorf("mcda: unknown normalization method %q", method)
		}
		for i := range out.Values {
			out.Values[i][j] = col[i]
		}
	}
	out.Normalized = true
	return out, nil
}

// normalizeMinMax rescales in place: benefit (x-min)/(max-min), cost
// (max-x)/(max-min). A constant column cannot be scaled and is reported as
// degenerate instead of dividing by zero.
func normalizeMinMax(col []float64, crit model.Criterion) error {
	lo, hi := col[0], col[0]
	for _, v := range col[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return eris.Wrapf(model.ErrDegenerateColumn, "mcda: criterion %q has constant value %g", crit.Name, lo)
	}
	span := hi - lo
	for i, v := range col {
		if crit.Direction == model.Cost {
			col[i] = (hi - v) / span
		} else {
			col[i] = (v - lo) / span
		}
	}
	return nil
}

// normalizeVector divides in place by the column norm. Cost values are
// reciprocal-transformed first so larger raw values end up smaller.
func normalizeVector(col []float64, crit model.Criterion) error {
	work := make([]float64, len(col))
	for i, v := range col {
		if crit.Direction == model.Cost {
			if v == 0 {
				return eris.Wrapf(model.ErrDegenerateColumn, "mcda: criterion %q has zero value, reciprocal undefined", crit.Name)
			}
			work[i] = 1 / v
		} else {
			work[i] = v
		}
	}
	norm := 0.0
	for _, v := range work {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return eris.Wrapf(model.ErrDegenerateColumn, "mcda: criterion %q is all zeros", crit.Name)
	}
	for i := range work {
		col[i] = work[i] / norm
	}
	return nil
}
