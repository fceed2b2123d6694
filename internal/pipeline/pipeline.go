// Package pipeline orchestrates zone designation: it assembles raw criterion
// scores from the spatial analyses, ranks candidates with the MCDA engine,
// applies hard constraints, and emits the final ranked zone list.
//
// A run moves through Ingested -> Scored -> ConstraintFiltered -> Ranked. Any
// fatal error aborts the whole run and discards partial state; a ranking over
// half-scored candidates would be worse than no ranking.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pelagica/zoneplan/internal/connectivity"
	"github.com/pelagica/zoneplan/internal/geokernel"
	"github.com/pelagica/zoneplan/internal/hotspot"
	"github.com/pelagica/zoneplan/internal/mcda"
	"github.com/pelagica/zoneplan/internal/model"
)

// Stage names a pipeline state, for logs and failure reports.
type Stage string

const (
	StageIngested           Stage = "ingested"
	StageScored             Stage = "scored"
	StageConstraintFiltered Stage = "constraint_filtered"
	StageRanked             Stage = "ranked"
)

// Criterion names the pipeline can derive from the spatial analyses when a
// candidate does not carry the value as an attribute.
const (
	CriterionArea         = "area_km2"
	CriterionConnectivity = string(model.AttrConnectivity)
	CriterionCoastDist    = string(model.AttrDistanceToCoast)
	CriterionHotspot      = "hotspot_z"
)

// Feature kind tags recognized in the input feature set.
const (
	KindCoastline = "coastline"
	KindCandidate = "candidate"
)

// Defaults for the spatial analyses when the runner is not configured.
const (
	defaultMobilityRangeKM = 50
	defaultHotspotRadiusM  = 50_000
)

// Runner holds per-process tuning for zone analysis runs. Zero values fall
// back to defaults at Run time.
type Runner struct {
	// Workers bounds the data-parallel scoring stage.
	Workers int
	// MobilityRangeKM parameterizes the habitat connectivity graph.
	MobilityRangeKM float64
	// HotspotRadiusM is the Gi* neighborhood radius for observation points.
	HotspotRadiusM float64
}

// candidate is the pipeline's working record for one zone alternative.
type candidate struct {
	feature *model.SpatialFeature
	polygon *geom.Polygon
	areaKM2 float64
	scores  map[string]float64
}

// Run executes a full zone designation over the supplied features. Polygon
// features become zone candidates (unless tagged as coastline), point
// features with a value attribute feed the hotspot column, and features
// tagged "coastline" anchor the distance-to-coast criterion and constraint.
//
// The caller's context bounds the whole run; when it fires, every partial
// result is discarded and the run fails with Timeout.
func (r *Runner) Run(ctx context.Context, features []model.SpatialFeature, habitats []model.Habitat, spec model.DecisionSpec, constraints model.ZoneConstraints) (*model.ZoneResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: decision spec")
	}
	workers := r.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("method", string(spec.Method)))

	candidates, observations, coastline, err := splitFeatures(features)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, eris.New("pipeline: no candidate zone polygons in input")
	}
	log.Info("pipeline: run started",
		zap.Int("candidates", len(candidates)),
		zap.Int("observations", len(observations)),
		zap.Int("habitats", len(habitats)),
	)

	// Ingested: assemble the raw criterion columns, in parallel across
	// candidates. The connectivity graph and hotspot field are computed once
	// and read by all workers.
	if err := r.ingest(ctx, candidates, observations, coastline, habitats, &spec, workers); err != nil {
		return nil, err
	}
	if err := checkDeadline(ctx, StageIngested); err != nil {
		return nil, err
	}

	// Scored: one decision matrix, normalized exactly once by the ranking
	// method, one rank score per candidate.
	scored, err := score(candidates, &spec)
	if err != nil {
		return nil, err
	}
	if err := checkDeadline(ctx, StageScored); err != nil {
		return nil, err
	}

	// ConstraintFiltered: hard constraints remove candidates; removals are
	// recorded, not treated as failures.
	kept, rejections, err := filterConstraints(scored, candidates, constraints, coastline)
	if err != nil {
		return nil, err
	}
	if err := checkDeadline(ctx, StageConstraintFiltered); err != nil {
		return nil, err
	}

	// Ranked: final deterministic ordering.
	sort.Slice(kept, func(a, b int) bool {
		if kept[a].RankScore != kept[b].RankScore {
			return kept[a].RankScore > kept[b].RankScore
		}
		return kept[a].ID < kept[b].ID
	})

	log.Info("pipeline: run finished",
		zap.Int("zones", len(kept)),
		zap.Int("rejections", len(rejections)),
	)
	return &model.ZoneResult{
		RunID:               runID,
		GeneratedAt:         time.Now().UTC(),
		Method:              spec.Method,
		Zones:               kept,
		Rejections:          rejections,
		InconsistentWeights: spec.Inconsistent,
	}, nil
}

// splitFeatures classifies the input features by geometry and kind tag.
// Candidate order is fixed by id so runs are reproducible regardless of
// input order.
func splitFeatures(features []model.SpatialFeature) (candidates []*candidate, observations, coastline []model.SpatialFeature, err error) {
	for i := range features {
		f := &features[i]
		if err := f.Validate(); err != nil {
			return nil, nil, nil, eris.Wrapf(err, "pipeline: feature %s", f.ID)
		}
		if f.Kind() == KindCoastline {
			coastline = append(coastline, *f)
			continue
		}
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			if err := geokernel.ValidatePolygon(g); err != nil {
				return nil, nil, nil, eris.Wrapf(err, "pipeline: candidate %s", f.ID)
			}
			candidates = append(candidates, &candidate{feature: f, polygon: g})
		case *geom.Point:
			if _, ok := f.Attributes.Value(model.AttrValue); ok {
				observations = append(observations, *f)
			}
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].feature.ID < candidates[b].feature.ID
	})
	return candidates, observations, coastline, nil
}

// ingest fills each candidate's raw score map for every criterion in the
// spec, deriving values from the spatial analyses where the candidate does
// not carry them as attributes. A criterion that is neither an attribute nor
// derivable fails the run; a silent zero would poison the ranking.
func (r *Runner) ingest(ctx context.Context, candidates []*candidate, observations, coastline []model.SpatialFeature, habitats []model.Habitat, spec *model.DecisionSpec, workers int) error {
	needs := make(map[string]bool, len(spec.Criteria))
	for _, c := range spec.Criteria {
		needs[c.Name] = true
	}

	var graph *connectivity.Graph
	if needs[CriterionConnectivity] && len(habitats) > 0 {
		rangeKM := r.MobilityRangeKM
		if rangeKM <= 0 {
			rangeKM = defaultMobilityRangeKM
		}
		g, err := connectivity.Build(habitats, rangeKM)
		if err != nil {
			return eris.Wrap(err, "pipeline: connectivity graph")
		}
		graph = g
	}

	var spots []hotspot.Result
	if needs[CriterionHotspot] && len(observations) > 0 {
		radius := r.HotspotRadiusM
		if radius <= 0 {
			radius = defaultHotspotRadiusM
		}
		res, err := hotspot.DetectWorkers(observations, model.AttrValue, radius, workers)
		if err != nil {
			return eris.Wrap(err, "pipeline: hotspot field")
		}
		spots = res
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return r.ingestCandidate(c, observations, coastline, habitats, graph, spots, spec)
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return eris.Wrap(model.ErrTimeout, "pipeline: ingest interrupted")
		}
		return err
	}
	return nil
}

func (r *Runner) ingestCandidate(c *candidate, observations, coastline []model.SpatialFeature, habitats []model.Habitat, graph *connectivity.Graph, spots []hotspot.Result, spec *model.DecisionSpec) error {
	area, err := geokernel.Area(c.polygon)
	if err != nil {
		return eris.Wrapf(err, "pipeline: area of candidate %s", c.feature.ID)
	}
	c.areaKM2 = area / 1e6
	c.scores = make(map[string]float64, len(spec.Criteria))

	for _, crit := range spec.Criteria {
		if v, ok := c.feature.Attributes.Value(model.AttributeKey(crit.Name)); ok {
			c.scores[crit.Name] = v
			continue
		}
		switch crit.Name {
		case CriterionArea:
			c.scores[crit.Name] = c.areaKM2
		case CriterionConnectivity:
			c.scores[crit.Name] = candidateConnectivity(c, habitats, graph)
		case CriterionHotspot:
			c.scores[crit.Name] = candidateHotspot(c, observations, spots)
		case CriterionCoastDist:
			d, err := coastDistanceKM(c, coastline)
			if err != nil {
				return eris.Wrapf(err, "pipeline: candidate %s", c.feature.ID)
			}
			c.scores[crit.Name] = d
		default:
			return eris.Errorf("pipeline: candidate %s has no value for criterion %q and it is not derivable", c.feature.ID, crit.Name)
		}
	}
	return nil
}

// candidateConnectivity averages the graph strength of habitats whose
// centroid falls inside the candidate. No habitats inside means no
// connectivity contribution.
func candidateConnectivity(c *candidate, habitats []model.Habitat, graph *connectivity.Graph) float64 {
	if graph == nil {
		return 0
	}
	var sum float64
	var count int
	for i := range habitats {
		lon, lat, err := geokernel.Centroid(habitats[i].Geometry)
		if err != nil {
			continue
		}
		pt := geom.NewPointFlat(geom.XY, []float64{lon, lat})
		if geokernel.Contains(c.polygon, pt) {
			sum += graph.MeanStrength(habitats[i].ID)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// candidateHotspot averages the Gi* z-score of observations inside the
// candidate polygon.
func candidateHotspot(c *candidate, observations []model.SpatialFeature, spots []hotspot.Result) float64 {
	var sum float64
	var count int
	for i := range observations {
		pt, ok := observations[i].Geometry.(*geom.Point)
		if !ok {
			continue
		}
		if geokernel.Contains(c.polygon, pt) {
			sum += spots[i].ZScore
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// coastDistanceKM is the distance from the candidate centroid to the nearest
// coastline feature. A coast-distance criterion without coastline features is
// a configuration error, not a silent zero.
func coastDistanceKM(c *candidate, coastline []model.SpatialFeature) (float64, error) {
	if len(coastline) == 0 {
		return 0, eris.New("pipeline: distance_to_coast requested but no coastline features supplied")
	}
	best := -1.0
	for i := range coastline {
		d, err := geokernel.Distance(c.feature, &coastline[i])
		if err != nil {
			return 0, err
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best / 1000, nil
}

// score builds the decision matrix and produces immutable scored candidates.
func score(candidates []*candidate, spec *model.DecisionSpec) ([]model.ZoneCandidate, error) {
	ids := make([]string, len(candidates))
	values := make([][]float64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.feature.ID
		row := make([]float64, len(spec.Criteria))
		for j, crit := range spec.Criteria {
			row[j] = c.scores[crit.Name]
		}
		values[i] = row
	}

	matrix, err := model.NewDecisionMatrix(ids, spec.Criteria, values)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: decision matrix")
	}
	scores, err := mcda.Rank(matrix, spec)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: rank candidates")
	}

	out := make([]model.ZoneCandidate, len(candidates))
	for i, c := range candidates {
		scoreCopy := make(map[string]float64, len(c.scores))
		for k, v := range c.scores {
			scoreCopy[k] = v
		}
		out[i] = model.ZoneCandidate{
			ID:                   c.feature.ID,
			Geometry:             c.polygon,
			CRS:                  c.feature.CRS,
			Scores:               scoreCopy,
			RankScore:            scores[i],
			ConstraintsSatisfied: true,
		}
	}
	return out, nil
}

// filterConstraints applies the hard constraints. Overlaps are resolved by
// keeping the higher-ranked candidate; equal scores fall back to ascending id
// so reruns are identical. A distance that cannot be computed is fatal for
// the run, never a silent pass.
func filterConstraints(scored []model.ZoneCandidate, candidates []*candidate, constraints model.ZoneConstraints, coastline []model.SpatialFeature) ([]model.ZoneCandidate, []model.Rejection, error) {
	areaByID := make(map[string]float64, len(candidates))
	byID := make(map[string]*candidate, len(candidates))
	for _, c := range candidates {
		areaByID[c.feature.ID] = c.areaKM2
		byID[c.feature.ID] = c
	}

	var rejections []model.Rejection
	var kept []model.ZoneCandidate

	for _, zc := range scored {
		if constraints.MinAreaKM2 > 0 && areaByID[zc.ID] < constraints.MinAreaKM2 {
			rejections = append(rejections, model.Rejection{
				CandidateID: zc.ID,
				Constraint:  "min_area",
				Detail:      fmt.Sprintf("area %.1f km² below minimum %.1f km²", areaByID[zc.ID], constraints.MinAreaKM2),
			})
			continue
		}
		if constraints.MaxCoastDistanceKM > 0 && len(coastline) > 0 {
			d, err := coastDistanceKM(byID[zc.ID], coastline)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "pipeline: coast distance of candidate %s", zc.ID)
			}
			if d > constraints.MaxCoastDistanceKM {
				rejections = append(rejections, model.Rejection{
					CandidateID: zc.ID,
					Constraint:  "max_coast_distance",
					Detail:      fmt.Sprintf("centroid %.1f km from coast, maximum %.1f km", d, constraints.MaxCoastDistanceKM),
				})
				continue
			}
		}
		kept = append(kept, zc)
	}

	if constraints.NoOverlap && len(kept) > 1 {
		kept, rejections = arbitrateOverlaps(kept, rejections)
	}
	return kept, rejections, nil
}

// arbitrateOverlaps greedily admits candidates from best to worst, rejecting
// any candidate that overlaps an already-admitted one.
func arbitrateOverlaps(kept []model.ZoneCandidate, rejections []model.Rejection) ([]model.ZoneCandidate, []model.Rejection) {
	order := append([]model.ZoneCandidate(nil), kept...)
	sort.Slice(order, func(a, b int) bool {
		if order[a].RankScore != order[b].RankScore {
			return order[a].RankScore > order[b].RankScore
		}
		return order[a].ID < order[b].ID
	})

	var admitted []model.ZoneCandidate
	for _, zc := range order {
		conflict := ""
		for _, winner := range admitted {
			if geokernel.Intersects(zc.Geometry, winner.Geometry) {
				conflict = winner.ID
				break
			}
		}
		if conflict != "" {
			rejections = append(rejections, model.Rejection{
				CandidateID: zc.ID,
				Constraint:  "overlap",
				Detail:      fmt.Sprintf("overlaps higher-ranked candidate %s", conflict),
			})
			continue
		}
		admitted = append(admitted, zc)
	}
	return admitted, rejections
}

func checkDeadline(ctx context.Context, stage Stage) error {
	if ctx.Err() != nil {
		return eris.Wrapf(model.ErrTimeout, "pipeline: %s stage interrupted", stage)
	}
	return nil
}
