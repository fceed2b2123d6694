package mcda

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/pelagica/zoneplan/internal/model"
)

// RankWeightedSum scores each alternative as the weighted sum of its
// normalized criterion values: score_i = Σ_j w_j · normalized[i][j].
//
// The matrix must already be normalized (exactly once); passing a raw matrix
// is an error rather than an implicit normalization, so the
// single-normalization invariant stays enforceable.
func RankWeightedSum(m *model.DecisionMatrix, weights []float64) ([]float64, error) {
	if !m.Normalized {
		return nil, eris.New("mcda: weighted sum requires a normalized matrix")
	}
	if err := checkWeights(m, weights); err != nil {
		return nil, err
	}

	scores := make([]float64, m.Rows())
	for i, row := range m.Values {
		s := 0.0
		for j, v := range row {
			s += weights[j] * v
		}
		scores[i] = s
	}
	return scores, nil
}

// RankTOPSIS scores each alternative by relative closeness to the ideal
// solution. The raw matrix is vector-normalized internally without the
// reciprocal transform, since TOPSIS keeps raw directions and instead picks
// direction-aware ideals. It is then weighted and measured against the ideal
// A+ (max per benefit column, min per cost) and anti-ideal A-.
//
// Scores are d-/(d+ + d-) in [0, 1], higher is better. An alternative
// coinciding with both ideals (only possible when it is the sole
// alternative) scores 0.5 by convention.
func RankTOPSIS(m *model.DecisionMatrix, weights []float64) ([]float64, error) {
	if m.Normalized {
		return nil, eris.New("mcda: TOPSIS requires the raw matrix, it normalizes internally")
	}
	if err := checkWeights(m, weights); err != nil {
		return nil, err
	}

	rows, cols := m.Rows(), m.Cols()

	// Weighted vector normalization per column.
	weighted := make([][]float64, rows)
	for i := range weighted {
		weighted[i] = make([]float64, cols)
	}
	for j := 0; j < cols; j++ {
		norm := 0.0
		for i := 0; i < rows; i++ {
			norm += m.Values[i][j] * m.Values[i][j]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return nil, eris.Wrapf(model.ErrDegenerateColumn, "mcda: criterion %q is all zeros", m.Criteria[j].Name)
		}
		for i := 0; i < rows; i++ {
			weighted[i][j] = weights[j] * m.Values[i][j] / norm
		}
	}

	// Ideal and anti-ideal solutions.
	ideal := make([]float64, cols)
	antiIdeal := make([]float64, cols)
	for j := 0; j < cols; j++ {
		lo, hi := weighted[0][j], weighted[0][j]
		for i := 1; i < rows; i++ {
			lo = math.Min(lo, weighted[i][j])
			hi = math.Max(hi, weighted[i][j])
		}
		if m.Criteria[j].Direction == model.Cost {
			ideal[j], antiIdeal[j] = lo, hi
		} else {
			ideal[j], antiIdeal[j] = hi, lo
		}
	}

	scores := make([]float64, rows)
	for i := 0; i < rows; i++ {
		var dPlus, dMinus float64
		for j := 0; j < cols; j++ {
			dPlus += (weighted[i][j] - ideal[j]) * (weighted[i][j] - ideal[j])
			dMinus += (weighted[i][j] - antiIdeal[j]) * (weighted[i][j] - antiIdeal[j])
		}
		dPlus = math.Sqrt(dPlus)
		dMinus = math.Sqrt(dMinus)
		if dPlus == 0 && dMinus == 0 {
			scores[i] = 0.5
			continue
		}
		scores[i] = dMinus / (dPlus + dMinus)
	}
	return scores, nil
}

// Rank dispatches to the spec's ranking method over a raw matrix, applying
// the method's own normalization exactly once.
func Rank(raw *model.DecisionMatrix, spec *model.DecisionSpec) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Method {
	case model.WeightedSum:
		normalized, err := Normalize(raw, MinMax)
		if err != nil {
			return nil, err
		}
		return RankWeightedSum(normalized, spec.Weights())
	case model.TOPSIS:
		return RankTOPSIS(raw, spec.Weights())
	default:
		return nil, eris.Errorf("mcda: unknown ranking method %q", spec.Method)
	}
}

func checkWeights(m *model.DecisionMatrix, weights []float64) error {
	if len(weights) != m.Cols() {
		return eris.Errorf("mcda: %d weights for %d criteria", len(weights), m.Cols())
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return eris.Errorf("mcda: negative weight %g", w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > model.WeightTolerance {
		return eris.Errorf("mcda: weights sum to %.6f, must sum to 1.0", sum)
	}
	return nil
}
