package mcda

import (
	"github.com/rotisserie/eris"

	"github.com/pelagica/zoneplan/internal/model"
)

// Built-in criteria sets per planning objective, with default weights.
// Callers can select one by objective name instead of listing criteria by
// hand; custom weights can still be applied afterwards (directly or via AHP).
var criteriaLibrary = map[string][]model.Criterion{
	"aquaculture": {
		{Name: string(model.AttrDepth), Weight: 0.30, Direction: model.Benefit},
		{Name: string(model.AttrTemperature), Weight: 0.25, Direction: model.Benefit},
		{Name: string(model.AttrCurrentSpeed), Weight: 0.20, Direction: model.Benefit},
		{Name: string(model.AttrDistanceToCoast), Weight: 0.15, Direction: model.Cost},
		{Name: string(model.AttrWaveHeight), Weight: 0.10, Direction: model.Cost},
	},
	"fishing": {
		{Name: string(model.AttrChlorophyll), Weight: 0.40, Direction: model.Benefit},
		{Name: string(model.AttrDepth), Weight: 0.25, Direction: model.Benefit},
		{Name: string(model.AttrDistanceToPort), Weight: 0.20, Direction: model.Cost},
		{Name: string(model.AttrFishAbundance), Weight: 0.15, Direction: model.Benefit},
	},
	"conservation": {
		{Name: string(model.AttrBiodiversity), Weight: 0.35, Direction: model.Benefit},
		{Name: string(model.AttrHabitatQuality), Weight: 0.30, Direction: model.Benefit},
		{Name: string(model.AttrHumanPressure), Weight: 0.20, Direction: model.Cost},
		{Name: string(model.AttrConnectivity), Weight: 0.15, Direction: model.Benefit},
	},
}

// Objectives lists the objectives with a built-in criteria set.
func Objectives() []string {
	return []string{"aquaculture", "conservation", "fishing"}
}

// ObjectiveCriteria returns a copy of the built-in criteria set for an
// objective.
func ObjectiveCriteria(objective string) ([]model.Criterion, error) {
	set, ok := criteriaLibrary[objective]
	if !ok {
		return nil, eris.Errorf("mcda: no built-in criteria for objective %q", objective)
	}
	return append([]model.Criterion(nil), set...), nil
}

// SpecForObjective builds a ready-to-validate decision spec from a built-in
// objective and ranking method.
func SpecForObjective(objective string, method model.RankMethod) (*model.DecisionSpec, error) {
	criteria, err := ObjectiveCriteria(objective)
	if err != nil {
		return nil, err
	}
	spec := &model.DecisionSpec{
		Objective: objective,
		Method:    method,
		Criteria:  criteria,
	}
	if err := spec.Validate(); err != nil {
		return nil, eris.Wrapf(err, "mcda: built-in spec for %q", objective)
	}
	return spec, nil
}
