package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/model"
)

// habitatAt builds a point habitat; 0.1 degrees of latitude is about 11.1 km.
func habitatAt(id string, lon, lat float64) model.Habitat {
	return model.Habitat{
		SpatialFeature: model.SpatialFeature{
			ID:       id,
			Geometry: geom.NewPointFlat(geom.XY, []float64{lon, lat}),
			CRS:      "EPSG:4326",
		},
		HabitatType: "reef",
	}
}

func TestBuildLinksWithinRange(t *testing.T) {
	habitats := []model.Habitat{
		habitatAt("a", 0, 0),
		habitatAt("b", 0, 0.1), // ~11.1 km from a
		habitatAt("c", 0, 1.0), // ~111 km from a, out of range
	}

	g, err := Build(habitats, 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes)
	// a<->b in both directions, c isolated.
	require.Len(t, g.Edges, 2)
	assert.Equal(t, 1, g.Degree("a"))
	assert.Equal(t, 1, g.Degree("b"))
	assert.Equal(t, 0, g.Degree("c"))
}

func TestBuildStrengthDecaysLinearly(t *testing.T) {
	habitats := []model.Habitat{
		habitatAt("a", 0, 0),
		habitatAt("b", 0, 0.1), // ~11.12 km
	}

	g, err := Build(habitats, 22.239) // twice the separation
	require.NoError(t, err)

	s := g.Strength("a", "b")
	assert.InDelta(t, 0.5, s, 0.01)
	assert.InDelta(t, s, g.Strength("b", "a"), 1e-9, "strength is symmetric")
	assert.Zero(t, g.Strength("a", "missing"))
}

func TestBuildNoSelfEdges(t *testing.T) {
	g, err := Build([]model.Habitat{habitatAt("a", 0, 0), habitatAt("b", 0, 0.01)}, 50)
	require.NoError(t, err)
	for _, e := range g.Edges {
		assert.NotEqual(t, e.From, e.To)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build([]model.Habitat{habitatAt("a", 0, 0)}, 0)
	assert.Error(t, err, "non-positive mobility range")

	_, err = Build([]model.Habitat{habitatAt("a", 0, 0), habitatAt("a", 1, 1)}, 50)
	assert.Error(t, err, "duplicate habitat id")

	bad := habitatAt("x", 0, 0)
	bad.Geometry = nil
	_, err = Build([]model.Habitat{bad}, 50)
	assert.Error(t, err, "invalid habitat geometry")
}

func TestBuildDeterministicEdgeOrder(t *testing.T) {
	habitats := []model.Habitat{
		habitatAt("c", 0, 0.2),
		habitatAt("a", 0, 0),
		habitatAt("b", 0, 0.1),
	}

	g1, err := Build(habitats, 50)
	require.NoError(t, err)
	g2, err := Build([]model.Habitat{habitats[1], habitats[2], habitats[0]}, 50)
	require.NoError(t, err)

	assert.Equal(t, g1.Nodes, g2.Nodes)
	require.Equal(t, len(g1.Edges), len(g2.Edges))
	for i := range g1.Edges {
		assert.Equal(t, g1.Edges[i].From, g2.Edges[i].From)
		assert.Equal(t, g1.Edges[i].To, g2.Edges[i].To)
	}
}

func TestMeanStrength(t *testing.T) {
	habitats := []model.Habitat{
		habitatAt("hub", 0, 0),
		habitatAt("near", 0, 0.05),
		habitatAt("far", 0, 0.15),
		habitatAt("isolated", 0, 5),
	}

	g, err := Build(habitats, 25)
	require.NoError(t, err)

	assert.Greater(t, g.MeanStrength("hub"), 0.0)
	assert.LessOrEqual(t, g.MeanStrength("hub"), 1.0)
	assert.Zero(t, g.MeanStrength("isolated"))
}

func TestComponents(t *testing.T) {
	habitats := []model.Habitat{
		// Cluster 1: chain a-b-c.
		habitatAt("a", 0, 0),
		habitatAt("b", 0, 0.1),
		habitatAt("c", 0, 0.2),
		// Cluster 2: pair d-e far away.
		habitatAt("d", 10, 10),
		habitatAt("e", 10, 10.1),
		// Isolated.
		habitatAt("f", -20, -20),
	}

	g, err := Build(habitats, 20)
	require.NoError(t, err)

	comps := g.Components()
	require.Len(t, comps, 3)
	assert.Equal(t, []string{"a", "b", "c"}, comps[0], "largest component first")
	assert.Equal(t, []string{"d", "e"}, comps[1])
	assert.Equal(t, []string{"f"}, comps[2])
}

func TestDensity(t *testing.T) {
	habitats := []model.Habitat{
		habitatAt("a", 0, 0),
		habitatAt("b", 0, 0.05),
		habitatAt("c", 0, 9), // unreachable
	}

	g, err := Build(habitats, 20)
	require.NoError(t, err)

	// 2 directed edges out of 6 possible.
	assert.InDelta(t, 2.0/6.0, g.Density(), 1e-9)

	single, err := Build([]model.Habitat{habitatAt("solo", 0, 0)}, 20)
	require.NoError(t, err)
	assert.Zero(t, single.Density())
}
