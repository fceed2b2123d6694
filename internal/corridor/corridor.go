// Package corridor finds least-cost paths between habitat nodes over a cost
// surface, for designing ecological corridors.
package corridor

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/pelagica/zoneplan/internal/model"
)

// ErrNoPath is returned when the target is unreachable from the start node.
var ErrNoPath = eris.New("no path between nodes")

type edge struct {
	to   string
	cost float64
}

// CostGraph is a directed cost surface over habitat and intermediate nodes.
// All edge costs must be non-negative.
type CostGraph struct {
	adj map[string][]edge
}

// NewCostGraph returns an empty cost surface.
func NewCostGraph() *CostGraph {
	return &CostGraph{adj: make(map[string][]edge)}
}

// AddNode registers a node with no edges. Adding an edge registers both
// endpoints implicitly, so this is only needed for isolated nodes.
func (g *CostGraph) AddNode(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

// AddEdge adds a directed edge. Negative costs are rejected with InvalidCost:
// Dijkstra's optimality argument does not survive them.
func (g *CostGraph) AddEdge(from, to string, cost float64) error {
	if cost < 0 || math.IsNaN(cost) {
		return eris.Wrapf(model.ErrInvalidCost, "corridor: edge %s -> %s has cost %g", from, to, cost)
	}
	g.AddNode(from)
	g.AddNode(to)
	g.adj[from] = append(g.adj[from], edge{to: to, cost: cost})
	return nil
}

// AddBidirectional adds the edge in both directions with the same cost.
func (g *CostGraph) AddBidirectional(a, b string, cost float64) error {
	if err := g.AddEdge(a, b, cost); err != nil {
		return err
	}
	return g.AddEdge(b, a, cost)
}

// HasNode reports whether id is part of the surface.
func (g *CostGraph) HasNode(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Path is an ordered least-cost route with its total cost.
type Path struct {
	Vertices  []string `json:"vertices"`
	TotalCost float64  `json:"total_cost"`
	Hops      int      `json:"hops"`
}

type queueItem struct {
	node  string
	cost  float64
	hops  int
	index int
}

// priorityQueue orders by cost, then hop count, then node id. The secondary
// keys make equal-cost searches deterministic and enforce the fewest-hops
// tie break.
type priorityQueue []*queueItem

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].hops != q[j].hops {
		return q[i].hops < q[j].hops
	}
	return q[i].node < q[j].node
}
func (q priorityQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra from start to end. Cost ties are broken by the
// lowest number of hops, then lexicographically by predecessor id so repeated
// runs return the same path.
func (g *CostGraph) ShortestPath(start, end string) (Path, error) {
	if !g.HasNode(start) {
		return Path{}, eris.Errorf("corridor: unknown start node %s", start)
	}
	if !g.HasNode(end) {
		return Path{}, eris.Errorf("corridor: unknown end node %s", end)
	}

	type state struct {
		cost float64
		hops int
		prev string
	}
	best := map[string]state{start: {cost: 0, hops: 0}}
	done := make(map[string]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{node: start, cost: 0, hops: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queueItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		if item.node == end {
			break
		}

		// Sorted adjacency keeps exploration order deterministic.
		edges := append([]edge(nil), g.adj[item.node]...)
		sort.Slice(edges, func(a, b int) bool { return edges[a].to < edges[b].to })

		for _, e := range edges {
			if done[e.to] {
				continue
			}
			next := state{cost: item.cost + e.cost, hops: item.hops + 1, prev: item.node}
			cur, seen := best[e.to]
			if !seen || next.cost < cur.cost ||
				(next.cost == cur.cost && next.hops < cur.hops) ||
				(next.cost == cur.cost && next.hops == cur.hops && next.prev < cur.prev) {
				best[e.to] = next
				heap.Push(pq, &queueItem{node: e.to, cost: next.cost, hops: next.hops})
			}
		}
	}

	endState, ok := best[end]
	if !ok || !done[end] {
		return Path{}, eris.Wrapf(ErrNoPath, "corridor: %s -> %s", start, end)
	}

	// Walk predecessors back to the start.
	vertices := []string{end}
	for node := end; node != start; {
		node = best[node].prev
		vertices = append(vertices, node)
	}
	for i, j := 0, len(vertices)-1; i < j; i, j = i+1, j-1 {
		vertices[i], vertices[j] = vertices[j], vertices[i]
	}

	return Path{Vertices: vertices, TotalCost: endState.cost, Hops: endState.hops}, nil
}

// GridSurface builds a 4-connected cost graph from a raster-style cost grid.
// Moving into a cell costs that cell's value. Node ids are "r,c".
func GridSurface(costs [][]float64) (*CostGraph, error) {
	g := NewCostGraph()
	rows := len(costs)
	if rows == 0 {
		return nil, eris.New("corridor: empty cost grid")
	}
	cols := len(costs[0])
	for r := 0; r < rows; r++ {
		if len(costs[r]) != cols {
			return nil, eris.Errorf("corridor: ragged cost grid at row %d", r)
		}
		for c := 0; c < cols; c++ {
			if costs[r][c] < 0 {
				return nil, eris.Wrapf(model.ErrInvalidCost, "corridor: cell (%d,%d) has cost %g", r, c, costs[r][c])
			}
			g.AddNode(GridNode(r, c))
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r+1 < rows {
				_ = g.AddEdge(GridNode(r, c), GridNode(r+1, c), costs[r+1][c])
				_ = g.AddEdge(GridNode(r+1, c), GridNode(r, c), costs[r][c])
			}
			if c+1 < cols {
				_ = g.AddEdge(GridNode(r, c), GridNode(r, c+1), costs[r][c+1])
				_ = g.AddEdge(GridNode(r, c+1), GridNode(r, c), costs[r][c])
			}
		}
	}
	return g, nil
}

// GridNode names a grid cell node.
func GridNode(r, c int) string {
	return fmt.Sprintf("%d,%d", r, c)
}
