// Package hotspot implements the Getis-Ord Gi* local spatial statistic over
// point features with a numeric value field.
package hotspot

import (
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/pelagica/zoneplan/internal/geokernel"
	"github.com/pelagica/zoneplan/internal/model"
)

// Classification buckets a Gi* z-score by significance level.
type Classification string

const (
	NotSignificant Classification = "not_significant"
	HotSpot95      Classification = "hot_95"
	HotSpot99      Classification = "hot_99"
	ColdSpot95     Classification = "cold_95"
	ColdSpot99     Classification = "cold_99"
)

// Significance cutoffs for the two-tailed normal test.
const (
	z95 = 1.96
	z99 = 2.58
)

// minNeighbors is the smallest neighborhood (excluding the feature itself)
// for which a z-score is considered meaningful. Below it the result is
// explicitly NotSignificant, never a silent NaN.
const minNeighbors = 3

// Result is the per-feature outcome of a Gi* run. Derived per run; stateless.
type Result struct {
	FeatureID      string         `json:"feature_id"`
	ZScore         float64        `json:"z_score"`
	Classification Classification `json:"classification"`
	Neighbors      int            `json:"neighbors"`
}

// Detect computes Gi* for every point feature using binary weights: w_ij = 1
// when feature j lies within radiusM meters of feature i (the feature itself
// included, per the Gi* convention), 0 otherwise.
//
// Per-feature statistics are independent and run on a bounded worker group;
// output order matches input order.
func Detect(features []model.SpatialFeature, valueKey model.AttributeKey, radiusM float64) ([]Result, error) {
	return DetectWorkers(features, valueKey, radiusM, runtime.NumCPU())
}

// DetectWorkers is Detect with an explicit worker bound.
func DetectWorkers(features []model.SpatialFeature, valueKey model.AttributeKey, radiusM float64, workers int) ([]Result, error) {
	if radiusM <= 0 {
		return nil, eris.Errorf("hotspot: radius must be positive, got %g", radiusM)
	}
	if !model.KnownAttribute(valueKey) {
		return nil, eris.Errorf("hotspot: %q is not a known numeric attribute", valueKey)
	}
	n := len(features)
	if n == 0 {
		return nil, nil
	}

	lons := make([]float64, n)
	lats := make([]float64, n)
	values := make([]float64, n)
	crs := features[0].CRS
	for i := range features {
		f := &features[i]
		if err := f.Validate(); err != nil {
			return nil, eris.Wrapf(err, "hotspot: feature %s", f.ID)
		}
		if f.CRS != crs {
			return nil, eris.Wrapf(model.ErrCrsMismatch, "hotspot: feature %s declares %s, expected %s", f.ID, f.CRS, crs)
		}
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidGeometry, "hotspot: feature %s is not a point", f.ID)
		}
		v, ok := f.Attributes.Value(valueKey)
		if !ok {
			return nil, eris.Errorf("hotspot: feature %s has no %q attribute", f.ID, valueKey)
		}
		c := pt.Coords()
		lons[i], lats[i] = c[0], c[1]
		values[i] = v
	}

	// Global field statistics: X̄ and S = sqrt(Σx²/n - X̄²).
	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	s := math.Sqrt(variance)

	results := make([]Result, n)
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			results[i] = giStar(i, features[i].ID, lons, lats, values, radiusM, mean, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// giStar computes the statistic for feature i:
//
//	Gi* = (Σ_j w_ij x_j - X̄ Σ_j w_ij) / (S · sqrt((n Σw² - (Σw)²)/(n-1)))
//
// With binary weights Σw equals the within-radius count W and Σw² == W.
func giStar(i int, id string, lons, lats, values []float64, radiusM, mean, s float64) Result {
	n := len(values)

	var weightSum, weightedValues float64
	neighbors := 0
	for j := 0; j < n; j++ {
		var d float64
		if j != i {
			d = geokernel.Haversine(lons[i], lats[i], lons[j], lats[j])
		}
		if d <= radiusM {
			weightSum++
			weightedValues += values[j]
			if j != i {
				neighbors++
			}
		}
	}

	res := Result{FeatureID: id, Classification: NotSignificant, Neighbors: neighbors}
	if neighbors < minNeighbors {
		// Insufficient sample: report the guard explicitly rather than a
		// z-score computed from noise.
		return res
	}
	if s == 0 || n < 2 {
		// Constant field: no clustering signal exists.
		return res
	}

	denom := s * math.Sqrt((float64(n)*weightSum-weightSum*weightSum)/float64(n-1))
	if denom == 0 {
		return res
	}

	res.ZScore = (weightedValues - mean*weightSum) / denom
	res.Classification = classify(res.ZScore)
	return res
}

func classify(z float64) Classification {
	switch {
	case z > z99:
		return HotSpot99
	case z > z95:
		return HotSpot95
	case z < -z99:
		return ColdSpot99
	case z < -z95:
		return ColdSpot95
	default:
		return NotSignificant
	}
}
