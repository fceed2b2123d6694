package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// WeightTolerance is the floating tolerance for the weights-sum-to-one check.
const WeightTolerance = 1e-6

// Direction declares whether more of a criterion is better or worse.
type Direction string

const (
	// Benefit criteria improve the alternative as they grow.
	Benefit Direction = "benefit"
	// Cost criteria degrade the alternative as they grow.
	Cost Direction = "cost"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	return d == Benefit || d == Cost
}

// RankMethod selects the MCDA ranking algorithm for a run.
type RankMethod string

const (
	WeightedSum RankMethod = "weighted_sum"
	TOPSIS      RankMethod = "topsis"
)

// Valid reports whether m is a recognized ranking method.
func (m RankMethod) Valid() bool {
	return m == WeightedSum || m == TOPSIS
}

// Criterion is one decision axis: a named column of the decision matrix with
// a weight and a direction.
type Criterion struct {
	Name      string    `json:"name" yaml:"name"`
	Weight    float64   `json:"weight" yaml:"weight"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// DecisionSpec declares how alternatives are ranked: which criteria, their
// weights, and the ranking method. Weights must sum to 1.0 within
// WeightTolerance; violating specs are rejected, never silently renormalized.
// AHP derivation is the only sanctioned way to produce weights from raw
// judgments.
type DecisionSpec struct {
	Objective string      `json:"objective,omitempty" yaml:"objective,omitempty"`
	Method    RankMethod  `json:"method" yaml:"method"`
	Criteria  []Criterion `json:"criteria" yaml:"criteria"`

	// Inconsistent is set when the weights came from an AHP derivation whose
	// consistency ratio exceeded 0.1. The run proceeds; the flag travels to
	// the result for audit.
	Inconsistent bool `json:"inconsistent,omitempty" yaml:"inconsistent,omitempty"`
}

// Validate checks the spec invariants.
func (s *DecisionSpec) Validate() error {
	if !s.Method.Valid() {
		return eris.Errorf("model: unknown ranking method %q", s.Method)
	}
	if len(s.Criteria) == 0 {
		return eris.New("model: decision spec has no criteria")
	}
	seen := make(map[string]bool, len(s.Criteria))
	sum := 0.0
	for _, c := range s.Criteria {
		if c.Name == "" {
			return eris.New("model: criterion name is required")
		}
		if seen[c.Name] {
			return eris.Errorf("model: duplicate criterion %q", c.Name)
		}
		seen[c.Name] = true
		if !c.Direction.Valid() {
			return eris.Errorf("model: criterion %q has unknown direction %q", c.Name, c.Direction)
		}
		if c.Weight < 0 {
			return eris.Errorf("model: criterion %q has negative weight %g", c.Name, c.Weight)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return eris.Errorf("model: criterion weights sum to %.6f, must sum to 1.0", sum)
	}
	return nil
}

// Weights returns the weight vector in criteria order.
func (s *DecisionSpec) Weights() []float64 {
	w := make([]float64, len(s.Criteria))
	for i, c := range s.Criteria {
		w[i] = c.Weight
	}
	return w
}

// PairwiseMatrix is an AHP judgment matrix: square, reciprocal
// (a[i][j] == 1/a[j][i]) with a unit diagonal. It exists only to derive
// criterion weights and is never persisted past the derivation.
type PairwiseMatrix [][]float64

// reciprocalTolerance allows for judgment matrices entered as rounded
// decimals: 0.33 for 1/3 leaves 3*0.33 = 0.99, a full 0.01 off unity before
// any float error.
const reciprocalTolerance = 0.02

// Validate checks shape, diagonal, positivity, and reciprocity.
func (p PairwiseMatrix) Validate() error {
	n := len(p)
	if n == 0 {
		return eris.New("model: pairwise matrix is empty")
	}
	for i, row := range p {
		if len(row) != n {
			return eris.Errorf("model: pairwise matrix row %d has %d entries, want %d", i, len(row), n)
		}
		if math.Abs(row[i]-1.0) > WeightTolerance {
			return eris.Errorf("model: pairwise matrix diagonal [%d][%d] = %g, want 1", i, i, row[i])
		}
		for j, v := range row {
			if v <= 0 {
				return eris.Errorf("model: pairwise matrix [%d][%d] = %g, judgments must be positive", i, j, v)
			}
			if math.Abs(v*p[j][i]-1.0) > reciprocalTolerance {
				return eris.Errorf("model: pairwise matrix not reciprocal at [%d][%d]", i, j)
			}
		}
	}
	return nil
}
