package mcda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagica/zoneplan/internal/model"
)

func benefitCost(wBenefit, wCost float64) []model.Criterion {
	return []model.Criterion{
		{Name: "depth", Weight: wBenefit, Direction: model.Benefit},
		{Name: "wave_height", Weight: wCost, Direction: model.Cost},
	}
}

func rawMatrix(t *testing.T, criteria []model.Criterion, values [][]float64) *model.DecisionMatrix {
	t.Helper()
	ids := make([]string, len(values))
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	m, err := model.NewDecisionMatrix(ids, criteria, values)
	require.NoError(t, err)
	return m
}

func TestNormalizeMinMax(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{10, 3},
		{30, 1},
		{20, 2},
	})

	out, err := Normalize(m, MinMax)
	require.NoError(t, err)
	require.True(t, out.Normalized)

	// Benefit column: (x-min)/(max-min).
	assert.InDelta(t, 0.0, out.Values[0][0], 1e-9)
	assert.InDelta(t, 1.0, out.Values[1][0], 1e-9)
	assert.InDelta(t, 0.5, out.Values[2][0], 1e-9)

	// Cost column is inverted: worst raw value scores 0.
	assert.InDelta(t, 0.0, out.Values[0][1], 1e-9)
	assert.InDelta(t, 1.0, out.Values[1][1], 1e-9)
	assert.InDelta(t, 0.5, out.Values[2][1], 1e-9)

	// The input matrix is untouched.
	assert.InDelta(t, 10, m.Values[0][0], 1e-9)
	assert.False(t, m.Normalized)
}

func TestNormalizeVector(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{3, 2},
		{4, 4},
	})

	out, err := Normalize(m, Vector)
	require.NoError(t, err)

	// Benefit column divided by its norm 5.
	assert.InDelta(t, 0.6, out.Values[0][0], 1e-9)
	assert.InDelta(t, 0.8, out.Values[1][0], 1e-9)

	// Cost column reciprocals 1/2 and 1/4, then divided by their norm.
	norm := math.Hypot(0.5, 0.25)
	assert.InDelta(t, 0.5/norm, out.Values[0][1], 1e-9)
	assert.InDelta(t, 0.25/norm, out.Values[1][1], 1e-9)
}

func TestNormalizeDegenerateColumn(t *testing.T) {
	constant := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{5, 1},
		{5, 2},
	})
	_, err := Normalize(constant, MinMax)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDegenerateColumn)

	zeroCost := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{1, 0},
		{2, 3},
	})
	_, err = Normalize(zeroCost, Vector)
	assert.ErrorIs(t, err, model.ErrDegenerateColumn, "zero cost value has no reciprocal")
}

func TestNormalizeRefusesDoubleNormalization(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{1, 2},
		{3, 4},
	})
	once, err := Normalize(m, MinMax)
	require.NoError(t, err)

	_, err = Normalize(once, MinMax)
	assert.Error(t, err)
}

func TestDeriveWeightsConsistentMatrix(t *testing.T) {
	// Perfectly consistent: a[i][j] = w_i/w_j for w = (4/7, 2/7, 1/7).
	p := model.PairwiseMatrix{
		{1, 2, 4},
		{0.5, 1, 2},
		{0.25, 0.5, 1},
	}

	res, err := DeriveWeights(p)
	require.NoError(t, err)

	assert.InDelta(t, 4.0/7.0, res.Weights[0], 1e-9)
	assert.InDelta(t, 2.0/7.0, res.Weights[1], 1e-9)
	assert.InDelta(t, 1.0/7.0, res.Weights[2], 1e-9)
	assert.InDelta(t, 3.0, res.LambdaMax, 1e-9)
	assert.InDelta(t, 0.0, res.ConsistencyRatio, 1e-9)
	assert.False(t, res.Inconsistent)
}

func TestDeriveWeightsNearConsistent(t *testing.T) {
	// Saaty-style judgment matrix with a small inconsistency: CR ~ 0.008.
	p := model.PairwiseMatrix{
		{1, 2, 6},
		{0.5, 1, 4},
		{1.0 / 6, 0.25, 1},
	}

	res, err := DeriveWeights(p)
	require.NoError(t, err)

	assert.InDelta(t, 0.5876, res.Weights[0], 1e-3)
	assert.InDelta(t, 0.3234, res.Weights[1], 1e-3)
	assert.InDelta(t, 0.0890, res.Weights[2], 1e-3)
	assert.Less(t, res.ConsistencyRatio, 0.1)
	assert.False(t, res.Inconsistent)

	sum := res.Weights[0] + res.Weights[1] + res.Weights[2]
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDeriveWeightsInconsistentMatrix(t *testing.T) {
	// Maximally cyclic judgments: a>b, b>c, c>a, all by 9.
	p := model.PairwiseMatrix{
		{1, 9, 1.0 / 9},
		{1.0 / 9, 1, 9},
		{9, 1.0 / 9, 1},
	}

	res, err := DeriveWeights(p)
	require.NoError(t, err)

	// Symmetry forces equal weights; the ratio exposes the contradiction.
	for _, w := range res.Weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-9)
	}
	assert.Greater(t, res.ConsistencyRatio, 0.1)
	assert.True(t, res.Inconsistent)
}

func TestDeriveWeightsRejectsInvalidMatrix(t *testing.T) {
	_, err := DeriveWeights(model.PairwiseMatrix{{1, 5}, {0.5, 1}})
	assert.Error(t, err, "not reciprocal")

	tooBig := make(model.PairwiseMatrix, 11)
	for i := range tooBig {
		tooBig[i] = make([]float64, 11)
		for j := range tooBig[i] {
			tooBig[i][j] = 1
		}
	}
	_, err = DeriveWeights(tooBig)
	assert.Error(t, err, "no random index above n=10")
}

func TestApplyWeights(t *testing.T) {
	spec := &model.DecisionSpec{
		Method: model.WeightedSum,
		Criteria: []model.Criterion{
			{Name: "a", Weight: 0.5, Direction: model.Benefit},
			{Name: "b", Weight: 0.5, Direction: model.Cost},
		},
	}
	res := AHPResult{Weights: []float64{0.7, 0.3}, Inconsistent: true}

	require.NoError(t, ApplyWeights(spec, res))
	assert.InDelta(t, 0.7, spec.Criteria[0].Weight, 1e-9)
	assert.InDelta(t, 0.3, spec.Criteria[1].Weight, 1e-9)
	assert.True(t, spec.Inconsistent)

	err := ApplyWeights(spec, AHPResult{Weights: []float64{1}})
	assert.Error(t, err, "dimension mismatch")
}

func TestRankWeightedSum(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.6, 0.4), [][]float64{
		{10, 5}, // best on both
		{0, 10}, // worst on both
		{5, 7.5},
	})
	normalized, err := Normalize(m, MinMax)
	require.NoError(t, err)

	scores, err := RankWeightedSum(normalized, []float64{0.6, 0.4})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.0, scores[1], 1e-9)
	assert.InDelta(t, 0.5, scores[2], 1e-9)
}

func TestRankWeightedSumMonotonic(t *testing.T) {
	// Raising a benefit value for one alternative, everything else fixed,
	// never lowers its score.
	weights := []float64{0.6, 0.4}
	prev := -1.0
	for _, depth := range []float64{4, 6, 8, 12, 20} {
		m := rawMatrix(t, benefitCost(0.6, 0.4), [][]float64{
			{10, 5},
			{0, 10},
			{depth, 7.5},
		})
		normalized, err := Normalize(m, MinMax)
		require.NoError(t, err)

		scores, err := RankWeightedSum(normalized, weights)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, scores[2], prev, "depth=%g", depth)
		prev = scores[2]
	}
}

func TestRankWeightedSumRequiresNormalizedMatrix(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{{1, 2}, {3, 4}})
	_, err := RankWeightedSum(m, []float64{0.5, 0.5})
	assert.Error(t, err)
}

func TestRankTOPSIS(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{
		{10, 1}, // dominates: best benefit, least cost
		{2, 9},  // dominated: worst on both
		{6, 5},
	})

	scores, err := RankTOPSIS(m, []float64{0.5, 0.5})
	require.NoError(t, err)

	// The dominant alternative coincides with the ideal, the dominated one
	// with the anti-ideal.
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.0, scores[1], 1e-9)
	assert.Greater(t, scores[2], 0.0)
	assert.Less(t, scores[2], 1.0)
}

func TestRankTOPSISSingleAlternative(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{{4, 2}})

	scores, err := RankTOPSIS(m, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, scores[0], 1e-9, "sole alternative is both ideal and anti-ideal")
}

func TestRankTOPSISRejectsNormalizedMatrix(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{{1, 2}, {3, 4}})
	normalized, err := Normalize(m, MinMax)
	require.NoError(t, err)

	_, err = RankTOPSIS(normalized, []float64{0.5, 0.5})
	assert.Error(t, err)
}

func TestRankTOPSISZeroColumn(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{{0, 1}, {0, 2}})
	_, err := RankTOPSIS(m, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, model.ErrDegenerateColumn)
}

func TestRankDispatch(t *testing.T) {
	values := [][]float64{
		{10, 1},
		{2, 9},
	}

	for _, method := range []model.RankMethod{model.WeightedSum, model.TOPSIS} {
		spec := &model.DecisionSpec{Method: method, Criteria: benefitCost(0.5, 0.5)}
		m := rawMatrix(t, spec.Criteria, values)

		scores, err := Rank(m, spec)
		require.NoError(t, err, method)
		assert.Greater(t, scores[0], scores[1], "alternative a dominates under %s", method)
	}
}

func TestCheckWeights(t *testing.T) {
	m := rawMatrix(t, benefitCost(0.5, 0.5), [][]float64{{1, 2}})
	normalized, err := Normalize(m, Vector)
	require.NoError(t, err)

	_, err = RankWeightedSum(normalized, []float64{1})
	assert.Error(t, err, "weight count mismatch")

	_, err = RankWeightedSum(normalized, []float64{0.9, 0.3})
	assert.Error(t, err, "weights must sum to 1")

	_, err = RankWeightedSum(normalized, []float64{1.5, -0.5})
	assert.Error(t, err, "negative weight")
}

func TestSensitivityStableRanking(t *testing.T) {
	// Alternative a dominates every criterion: no 10% perturbation can
	// change the leader.
	spec := &model.DecisionSpec{Method: model.WeightedSum, Criteria: benefitCost(0.5, 0.5)}
	m := rawMatrix(t, spec.Criteria, [][]float64{
		{10, 1},
		{2, 9},
		{5, 5},
	})

	report, err := Sensitivity(m, spec, 10)
	require.NoError(t, err)

	assert.Equal(t, "a", report.BaselineTop)
	for _, cs := range report.Criteria {
		assert.False(t, cs.TopChangedUp, cs.Criterion)
		assert.False(t, cs.TopChangedDown, cs.Criterion)
	}
}

func TestSensitivityDetectsFlip(t *testing.T) {
	// a wins on the benefit criterion, b on the cost criterion; with near
	// balanced weights a large perturbation flips the leader.
	spec := &model.DecisionSpec{Method: model.WeightedSum, Criteria: benefitCost(0.52, 0.48)}
	m := rawMatrix(t, spec.Criteria, [][]float64{
		{10, 8},
		{2, 1},
	})

	report, err := Sensitivity(m, spec, 20)
	require.NoError(t, err)
	assert.Equal(t, "a", report.BaselineTop)

	flipped := false
	for _, cs := range report.Criteria {
		if cs.TopChangedUp || cs.TopChangedDown {
			flipped = true
		}
	}
	assert.True(t, flipped, "a near-tied ranking should flip under 20%% perturbation")
}

func TestSensitivityRejectsBadPerturbation(t *testing.T) {
	spec := &model.DecisionSpec{Method: model.WeightedSum, Criteria: benefitCost(0.5, 0.5)}
	m := rawMatrix(t, spec.Criteria, [][]float64{{1, 2}, {3, 4}})

	_, err := Sensitivity(m, spec, 0)
	assert.Error(t, err)
	_, err = Sensitivity(m, spec, 100)
	assert.Error(t, err)
}

func TestObjectiveLibrary(t *testing.T) {
	assert.Equal(t, []string{"aquaculture", "conservation", "fishing"}, Objectives())

	for _, objective := range Objectives() {
		spec, err := SpecForObjective(objective, model.WeightedSum)
		require.NoError(t, err, objective)
		assert.NoError(t, spec.Validate())
	}

	_, err := ObjectiveCriteria("mining")
	assert.Error(t, err)

	// Returned criteria are copies.
	set, err := ObjectiveCriteria("fishing")
	require.NoError(t, err)
	set[0].Weight = 99
	again, err := ObjectiveCriteria("fishing")
	require.NoError(t, err)
	assert.InDelta(t, 0.40, again[0].Weight, 1e-9)
}
