package mcda

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/model"
)

// ConsistencyThreshold is Saaty's accepted upper bound on the consistency
// ratio. Matrices above it are flagged, not rejected: hiding them would break
// the audit trail, so the caller decides.
const ConsistencyThreshold = 0.1

// randomIndex is Saaty's random consistency index RI(n) for n = 1..10.
var randomIndex = [...]float64{0, 0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49}

// AHPResult is the outcome of a weight derivation.
type AHPResult struct {
	Weights          []float64 `json:"weights"`
	LambdaMax        float64   `json:"lambda_max"`
	ConsistencyIndex float64   `json:"consistency_index"`
	ConsistencyRatio float64   `json:"consistency_ratio"`
	Inconsistent     bool      `json:"inconsistent"`
}

// DeriveWeights derives a criterion weight vector from an AHP pairwise
// judgment matrix using the normalized geometric mean of each row. The
// geometric-mean approximation is used throughout this engine (rather than
// power iteration): it is deterministic, closed-form, and exact for
// consistent matrices.
//
// λmax is estimated as the mean of (A·w)_i / w_i, giving CI = (λmax-n)/(n-1)
// and CR = CI / RI(n). A CR above ConsistencyThreshold sets Inconsistent but
// the weights are still returned.
func DeriveWeights(p model.PairwiseMatrix) (AHPResult, error) {
	if err := p.Validate(); err != nil {
		return AHPResult{}, eris.Wrap(err, "mcda: derive weights")
	}
	n := len(p)
	if n >= len(randomIndex) {
		return AHPResult{}, eris.Errorf("mcda: no random index for %d criteria (max %d)", n, len(randomIndex)-1)
	}

	// Normalized geometric mean of each row.
	weights := make([]float64, n)
	sum := 0.0
	for i, row := range p {
		logSum := 0.0
		for _, v := range row {
			logSum += math.Log(v)
		}
		weights[i] = math.Exp(logSum / float64(n))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	res := AHPResult{Weights: weights}
	if n == 1 {
		res.LambdaMax = 1
		return res, nil
	}

	// λmax from the weighted row sums.
	lambda := 0.0
	for i, row := range p {
		rowSum := 0.0
		for j, v := range row {
			rowSum += v * weights[j]
		}
		lambda += rowSum / weights[i]
	}
	res.LambdaMax = lambda / float64(n)
	res.ConsistencyIndex = (res.LambdaMax - float64(n)) / float64(n-1)
	if ri := randomIndex[n]; ri > 0 {
		res.ConsistencyRatio = res.ConsistencyIndex / ri
	}
	res.Inconsistent = res.ConsistencyRatio > ConsistencyThreshold

	if res.Inconsistent {
		zap.L().Warn("mcda: pairwise judgments exceed consistency threshold",
			zap.Float64("consistency_ratio", res.ConsistencyRatio),
			zap.Int("criteria", n),
		)
	}
	return res, nil
}

// ApplyWeights copies the derived weights onto a decision spec's criteria,
// carrying the inconsistency flag along for the audit trail. The criteria
// count must match the judgment matrix dimension.
func ApplyWeights(spec *model.DecisionSpec, res AHPResult) error {
	if len(spec.Criteria) != len(res.Weights) {
		return eris.Errorf("mcda: %d derived weights for %d criteria", len(res.Weights), len(spec.Criteria))
	}
	out := make([]model.Criterion, len(spec.Criteria))
	copy(out, spec.Criteria)
	for i := range out {
		out[i].Weight = res.Weights[i]
	}
	spec.Criteria = out
	spec.Inconsistent = res.Inconsistent
	return nil
}
