// Package connectivity builds habitat connectivity graphs: habitats become
// nodes, and pairs closer than the species mobility range are linked by edges
// whose strength decays linearly with distance.
package connectivity

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/geokernel"
	"github.com/pelagica/zoneplan/internal/model"
)

// Edge links two habitats within mobility range. Strength is in [0, 1] and
// decreases monotonically with distance.
type Edge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	DistanceM float64 `json:"distance_m"`
	Strength  float64 `json:"strength"`
}

// Graph is a habitat connectivity graph. It is rebuilt whenever the habitat
// set or mobility parameter changes, never patched incrementally.
type Graph struct {
	Nodes           []string `json:"nodes"`
	Edges           []Edge   `json:"edges"`
	MobilityRangeKM float64  `json:"mobility_range_km"`

	adj map[string][]Edge
}

// Build computes the connectivity graph for a habitat set. Every ordered pair
// within mobilityRangeKM kilometers gets an edge with
// strength = max(0, 1 - distance/range); no self edges. Deterministic and
// O(n²) over the habitat count, which stays in the low hundreds.
func Build(habitats []model.Habitat, mobilityRangeKM float64) (*Graph, error) {
	if mobilityRangeKM <= 0 {
		return nil, eris.Errorf("connectivity: mobility range must be positive, got %g", mobilityRangeKM)
	}
	rangeM := mobilityRangeKM * 1000

	g := &Graph{
		MobilityRangeKM: mobilityRangeKM,
		adj:             make(map[string][]Edge, len(habitats)),
	}
	seen := make(map[string]bool, len(habitats))
	for _, h := range habitats {
		if err := h.Validate(); err != nil {
			return nil, eris.Wrapf(err, "connectivity: habitat %s", h.ID)
		}
		if seen[h.ID] {
			return nil, eris.Errorf("connectivity: duplicate habitat id %s", h.ID)
		}
		seen[h.ID] = true
		g.Nodes = append(g.Nodes, h.ID)
	}
	sort.Strings(g.Nodes)

	for i := range habitats {
		for j := range habitats {
			if i == j {
				continue
			}
			d, err := geokernel.Distance(&habitats[i].SpatialFeature, &habitats[j].SpatialFeature)
			if err != nil {
				return nil, eris.Wrapf(err, "connectivity: distance %s -> %s", habitats[i].ID, habitats[j].ID)
			}
			if d > rangeM {
				continue
			}
			e := Edge{
				From:      habitats[i].ID,
				To:        habitats[j].ID,
				DistanceM: d,
				Strength:  1 - d/rangeM,
			}
			if e.Strength < 0 {
				e.Strength = 0
			}
			g.Edges = append(g.Edges, e)
			g.adj[e.From] = append(g.adj[e.From], e)
		}
	}

	sort.Slice(g.Edges, func(a, b int) bool {
		if g.Edges[a].From != g.Edges[b].From {
			return g.Edges[a].From < g.Edges[b].From
		}
		return g.Edges[a].To < g.Edges[b].To
	})

	zap.L().Debug("connectivity: graph built",
		zap.Int("habitats", len(habitats)),
		zap.Int("edges", len(g.Edges)),
		zap.Float64("mobility_range_km", mobilityRangeKM),
	)
	return g, nil
}

// Strength returns the pairwise connectivity strength between two habitats,
// or 0 when they are out of mobility range.
func (g *Graph) Strength(from, to string) float64 {
	for _, e := range g.adj[from] {
		if e.To == to {
			return e.Strength
		}
	}
	return 0
}

// Degree returns the number of habitats reachable from id in one hop.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// MeanStrength returns the average strength of all edges touching id, or 0
// for an isolated habitat.
func (g *Graph) MeanStrength(id string) float64 {
	edges := g.adj[id]
	if len(edges) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range edges {
		sum += e.Strength
	}
	return sum / float64(len(edges))
}

// Components returns the connected components as sorted node groups, largest
// first (ties broken by first node id).
func (g *Graph) Components() [][]string {
	visited := make(map[string]bool, len(g.Nodes))
	var components [][]string

	for _, start := range g.Nodes {
		if visited[start] {
			continue
		}
		var comp []string
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for _, e := range g.adj[n] {
				if !visited[e.To] {
					visited[e.To] = true
					stack = append(stack, e.To)
				}
			}
		}
		sort.Strings(comp)
		components = append(components, comp)
	}

	sort.Slice(components, func(a, b int) bool {
		if len(components[a]) != len(components[b]) {
			return len(components[a]) > len(components[b])
		}
		return components[a][0] < components[b][0]
	})
	return components
}

// Density is the ratio of existing edges to possible directed edges.
func (g *Graph) Density() float64 {
	n := len(g.Nodes)
	if n < 2 {
		return 0
	}
	return float64(len(g.Edges)) / float64(n*(n-1))
}
