package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// ZoneCandidate is one alternative in a zone designation run: a polygon with
// per-criterion raw scores and, once scored, a rank score. Candidates are
// never mutated after scoring; re-scoring produces new candidate values.
type ZoneCandidate struct {
	ID                   string             `json:"id"`
	Geometry             *geom.Polygon      `json:"-"`
	CRS                  string             `json:"crs"`
	Scores               map[string]float64 `json:"scores"`
	RankScore            float64            `json:"rank_score"`
	ConstraintsSatisfied bool               `json:"constraints_satisfied"`
}

// ZoneConstraints are the hard constraints applied after scoring. Zero values
// disable the corresponding check.
type ZoneConstraints struct {
	// MinAreaKM2 rejects candidates smaller than this area.
	MinAreaKM2 float64 `json:"min_area_km2" yaml:"min_area_km2"`
	// MaxCoastDistanceKM rejects candidates whose centroid is farther than
	// this from the nearest coastline feature.
	MaxCoastDistanceKM float64 `json:"max_coast_distance_km" yaml:"max_coast_distance_km"`
	// NoOverlap rejects the lower-ranked candidate of every overlapping pair.
	NoOverlap bool `json:"no_overlap" yaml:"no_overlap"`
}

// Rejection records why a candidate was removed during constraint filtering.
// Rejections are informational, not failures.
type Rejection struct {
	CandidateID string `json:"candidate_id"`
	Constraint  string `json:"constraint"`
	Detail      string `json:"detail"`
}

// ZoneResult is the terminal output of a designation run: the surviving
// candidates ordered by descending rank score, plus the audit trail.
type ZoneResult struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Method      RankMethod      `json:"method"`
	Zones       []ZoneCandidate `json:"zones"`
	Rejections  []Rejection     `json:"rejections,omitempty"`

	// InconsistentWeights carries the AHP inconsistency flag from the
	// decision spec into the audit trail.
	InconsistentWeights bool `json:"inconsistent_weights,omitempty"`
}
