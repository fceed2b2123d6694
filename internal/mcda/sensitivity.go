package mcda

import (
	"github.com/rotisserie/eris"

	"github.com/pelagica/zoneplan/internal/model"
)

// CriterionStability records how the ranking reacts when one criterion's
// weight is perturbed in each direction.
type CriterionStability struct {
	Criterion string `json:"criterion"`
	// TopChangedUp is set when increasing the weight changed the top-1
	// alternative; TopUp names the new leader.
	TopChangedUp bool   `json:"top_changed_up"`
	TopUp        string `json:"top_up,omitempty"`
	// TopChangedDown mirrors the decrease direction.
	TopChangedDown bool   `json:"top_changed_down"`
	TopDown        string `json:"top_down,omitempty"`
}

// StabilityReport is the outcome of a sensitivity analysis: the baseline
// leader and the per-criterion stability under perturbation.
type StabilityReport struct {
	PerturbationPct float64              `json:"perturbation_pct"`
	BaselineTop     string               `json:"baseline_top"`
	Criteria        []CriterionStability `json:"criteria"`
}

// Sensitivity perturbs each criterion weight by ±perturbationPct percent,
// renormalizes the remaining weights proportionally so the vector still sums
// to one, recomputes the ranking with the spec's method, and reports whether
// the top-1 alternative changed. Criteria that flip the leader are the ones
// whose judgment deserves the most scrutiny.
func Sensitivity(raw *model.DecisionMatrix, spec *model.DecisionSpec, perturbationPct float64) (*StabilityReport, error) {
	if perturbationPct <= 0 || perturbationPct >= 100 {
		return nil, eris.Errorf("mcda: perturbation must be in (0, 100), got %g", perturbationPct)
	}
	baseScores, err := Rank(raw, spec)
	if err != nil {
		return nil, eris.Wrap(err, "mcda: sensitivity baseline")
	}
	baseTop := topAlternative(raw.Alternatives, baseScores)

	report := &StabilityReport{
		PerturbationPct: perturbationPct,
		BaselineTop:     baseTop,
		Criteria:        make([]CriterionStability, 0, len(spec.Criteria)),
	}

	for target := range spec.Criteria {
		entry := CriterionStability{Criterion: spec.Criteria[target].Name}

		for _, sign := range []float64{1, -1} {
			perturbed, ok := perturbSpec(spec, target, sign*perturbationPct/100)
			if !ok {
				continue
			}
			scores, err := Rank(raw, perturbed)
			if err != nil {
				return nil, eris.Wrapf(err, "mcda: sensitivity on %q", spec.Criteria[target].Name)
			}
			top := topAlternative(raw.Alternatives, scores)
			if sign > 0 {
				entry.TopChangedUp = top != baseTop
				if entry.TopChangedUp {
					entry.TopUp = top
				}
			} else {
				entry.TopChangedDown = top != baseTop
				if entry.TopChangedDown {
					entry.TopDown = top
				}
			}
		}
		report.Criteria = append(report.Criteria, entry)
	}
	return report, nil
}

// perturbSpec scales the target weight by (1+delta) and redistributes the
// slack across the other weights proportionally. Returns ok=false when the
// perturbation is impossible (single criterion, or the others carry no
// weight).
func perturbSpec(spec *model.DecisionSpec, target int, delta float64) (*model.DecisionSpec, bool) {
	n := len(spec.Criteria)
	if n < 2 {
		return nil, false
	}
	newTarget := spec.Criteria[target].Weight * (1 + delta)
	if newTarget < 0 || newTarget > 1 {
		return nil, false
	}
	restOld := 1 - spec.Criteria[target].Weight
	if restOld <= 0 {
		return nil, false
	}
	factor := (1 - newTarget) / restOld

	out := *spec
	out.Criteria = make([]model.Criterion, n)
	copy(out.Criteria, spec.Criteria)
	for i := range out.Criteria {
		if i == target {
			out.Criteria[i].Weight = newTarget
		} else {
			out.Criteria[i].Weight *= factor
		}
	}
	return &out, true
}

// topAlternative picks the best-scoring alternative, ties broken by
// ascending id for determinism.
func topAlternative(alternatives []string, scores []float64) string {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] ||
			(scores[i] == scores[best] && alternatives[i] < alternatives[best]) {
			best = i
		}
	}
	return alternatives[best]
}
