package hotspot

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/model"
)

func obs(id string, lon, lat, value float64) model.SpatialFeature {
	return model.SpatialFeature{
		ID:       id,
		Geometry: geom.NewPointFlat(geom.XY, []float64{lon, lat}),
		CRS:      "EPSG:4326",
		Attributes: model.Attributes{
			Known: map[model.AttributeKey]float64{model.AttrValue: value},
		},
	}
}

// grid7 builds a 7x7 grid of observations spaced 0.1 degrees (~11 km), with
// value high inside the centered 3x3 block and low elsewhere. The center cell
// id is returned for assertions.
func grid7(low, high float64) (features []model.SpatialFeature, centerID string) {
	for r := 0; r < 7; r++ {
		for c := 0; c < 7; c++ {
			v := low
			if r >= 2 && r <= 4 && c >= 2 && c <= 4 {
				v = high
			}
			id := fmt.Sprintf("p_%d_%d", r, c)
			features = append(features, obs(id, float64(c)*0.1, float64(r)*0.1, v))
			if r == 3 && c == 3 {
				centerID = id
			}
		}
	}
	return features, centerID
}

// findResult returns the result for a feature id.
func findResult(t *testing.T, results []Result, id string) Result {
	t.Helper()
	for _, r := range results {
		if r.FeatureID == id {
			return r
		}
	}
	t.Fatalf("no result for %s", id)
	return Result{}
}

func TestDetectHotCluster(t *testing.T) {
	// 15 km radius covers the rook neighbors (11 km) but not the diagonals
	// (15.7 km), so the cluster center sees only high-valued neighbors.
	features, centerID := grid7(0, 100)

	results, err := Detect(features, model.AttrValue, 15_000)
	require.NoError(t, err)
	require.Len(t, results, len(features))

	center := findResult(t, results, centerID)
	assert.Equal(t, HotSpot99, center.Classification)
	assert.Greater(t, center.ZScore, z99)

	// A far-away background cell with enough neighbors stays insignificant.
	background := findResult(t, results, "p_0_3")
	assert.Equal(t, NotSignificant, background.Classification)
}

func TestDetectColdCluster(t *testing.T) {
	features, centerID := grid7(100, 0)

	results, err := Detect(features, model.AttrValue, 15_000)
	require.NoError(t, err)

	center := findResult(t, results, centerID)
	assert.Equal(t, ColdSpot99, center.Classification)
	assert.Less(t, center.ZScore, -z99)
}

func TestDetectConstantField(t *testing.T) {
	features, _ := grid7(42, 42)

	results, err := Detect(features, model.AttrValue, 15_000)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, NotSignificant, r.Classification)
		assert.Zero(t, r.ZScore)
	}
}

func TestDetectUniformRandomField(t *testing.T) {
	// A clustering-free uniform field should come out overwhelmingly not
	// significant. Aggregated over several seeded 10x10 grids to keep the
	// assertion well clear of per-run sampling noise.
	var total, insignificant int
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var features []model.SpatialFeature
		for r := 0; r < 10; r++ {
			for c := 0; c < 10; c++ {
				id := fmt.Sprintf("u_%d_%d_%d", seed, r, c)
				features = append(features, obs(id, float64(c)*0.1, float64(r)*0.1, rng.Float64()))
			}
		}

		results, err := Detect(features, model.AttrValue, 15_000)
		require.NoError(t, err)
		for _, res := range results {
			total++
			if res.Classification == NotSignificant {
				insignificant++
			}
		}
	}
	assert.GreaterOrEqual(t, float64(insignificant)/float64(total), 0.9)
}

func TestDetectTooFewNeighbors(t *testing.T) {
	// Three isolated points: each sees at most 0 neighbors in 10 km.
	features := []model.SpatialFeature{
		obs("a", 0, 0, 10),
		obs("b", 5, 5, 20),
		obs("c", -5, -5, 30),
	}

	results, err := Detect(features, model.AttrValue, 10_000)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, NotSignificant, r.Classification)
		assert.Zero(t, r.ZScore)
		assert.Less(t, r.Neighbors, 3)
	}
}

func TestDetectOutputOrderMatchesInput(t *testing.T) {
	features, _ := grid7(0, 100)

	results, err := DetectWorkers(features, model.AttrValue, 15_000, 4)
	require.NoError(t, err)
	require.Len(t, results, len(features))
	for i, r := range results {
		assert.Equal(t, features[i].ID, r.FeatureID)
	}
}

func TestDetectInputValidation(t *testing.T) {
	good := obs("a", 0, 0, 1)

	_, err := Detect([]model.SpatialFeature{good}, model.AttrValue, 0)
	assert.Error(t, err, "non-positive radius")

	_, err = Detect([]model.SpatialFeature{good}, "favorite_color", 1000)
	assert.Error(t, err, "unknown attribute")

	poly := good
	poly.Geometry = geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8})
	_, err = Detect([]model.SpatialFeature{poly}, model.AttrValue, 1000)
	assert.ErrorIs(t, err, model.ErrInvalidGeometry)

	noValue := model.SpatialFeature{
		ID:       "bare",
		Geometry: geom.NewPointFlat(geom.XY, []float64{0, 0}),
		CRS:      "EPSG:4326",
	}
	_, err = Detect([]model.SpatialFeature{noValue}, model.AttrValue, 1000)
	assert.Error(t, err, "missing value attribute")

	mixed := obs("b", 1, 1, 2)
	mixed.CRS = "EPSG:3857"
	_, err = Detect([]model.SpatialFeature{good, mixed}, model.AttrValue, 1000)
	assert.ErrorIs(t, err, model.ErrCrsMismatch)
}

func TestDetectEmptyInput(t *testing.T) {
	results, err := Detect(nil, model.AttrValue, 1000)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestClassifyCutoffs(t *testing.T) {
	tests := []struct {
		z    float64
		want Classification
	}{
		{3.0, HotSpot99},
		{2.0, HotSpot95},
		{1.0, NotSignificant},
		{0, NotSignificant},
		{-1.0, NotSignificant},
		{-2.0, ColdSpot95},
		{-3.0, ColdSpot99},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.z), "z=%g", tt.z)
	}
}
