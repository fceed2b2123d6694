package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pelagica/zoneplan/internal/model"
)

// LoadDecisionSpec reads and validates a YAML decision spec:
//
//	objective: aquaculture
//	method: weighted_sum
//	criteria:
//	  - name: depth
//	    weight: 0.5
//	    direction: benefit
//	  - name: wave_height
//	    weight: 0.5
//	    direction: cost
func LoadDecisionSpec(path string) (*model.DecisionSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	var spec model.DecisionSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse decision spec %s", path)
	}
	if err := spec.Validate(); err != nil {
		return nil, eris.Wrapf(err, "ingest: decision spec %s", path)
	}
	return &spec, nil
}

// pairwiseFile is the YAML shape of an AHP judgment matrix: criterion names
// plus the square judgment grid in the same order.
type pairwiseFile struct {
	Criteria  []string    `yaml:"criteria"`
	Judgments [][]float64 `yaml:"judgments"`
}

// LoadPairwise reads a YAML AHP judgment matrix and validates reciprocity.
// The returned names are in matrix order.
func LoadPairwise(path string) ([]string, model.PairwiseMatrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	var file pairwiseFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: parse pairwise matrix %s", path)
	}
	if len(file.Criteria) != len(file.Judgments) {
		return nil, nil, eris.Errorf("ingest: %d criteria but %d judgment rows in %s",
			len(file.Criteria), len(file.Judgments), path)
	}
	matrix := model.PairwiseMatrix(file.Judgments)
	if err := matrix.Validate(); err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: pairwise matrix %s", path)
	}
	return file.Criteria, matrix, nil
}
