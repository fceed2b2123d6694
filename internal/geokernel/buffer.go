package geokernel

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/model"
)

// DefaultBufferSegments is the number of vertices used for a full buffer
// circle. Arcs at corners use a proportional share.
const DefaultBufferSegments = 64

// Buffer returns a polygon containing every location within distM meters of
// the feature. Geographic inputs are projected onto a plane centered on the
// feature centroid before offsetting, so the distance is honored in meters.
//
// A zero distance returns the input polygon unchanged (or a degenerate
// zero-area polygon for point inputs). Self-intersecting or empty input fails
// with InvalidGeometry.
func Buffer(f *model.SpatialFeature, distM float64) (*geom.Polygon, error) {
	return BufferSegments(f, distM, DefaultBufferSegments)
}

// BufferSegments is Buffer with an explicit circle resolution.
func BufferSegments(f *model.SpatialFeature, distM float64, segments int) (*geom.Polygon, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if distM < 0 {
		return nil, eris.Errorf("geokernel: negative buffer distance %g for %s", distM, f.ID)
	}
	if segments < 8 {
		segments = 8
	}

	lon0, lat0, err := Centroid(f.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "geokernel: buffer %s", f.ID)
	}
	proj := newPlaneProjection(lon0, lat0)

	switch g := f.Geometry.(type) {
	case *geom.Point:
		c := g.Coords()
		if distM == 0 {
			return degeneratePointPolygon(c[0], c[1]), nil
		}
		x, y := proj.forward(c[0], c[1])
		ring := circle(x, y, distM, segments)
		return ringsToPolygon(proj, [][][2]float64{ring}), nil

	case *geom.Polygon:
		if err := ValidatePolygon(g); err != nil {
			return nil, eris.Wrapf(err, "geokernel: buffer %s", f.ID)
		}
		if distM == 0 {
			return clonePolygon(g), nil
		}
		return bufferPolygon(proj, g, distM, segments)

	case *geom.LineString:
		walk := projectOpenWalk(proj, g.Coords())
		if len(walk) < 2 {
			return nil, eris.Wrapf(model.ErrInvalidGeometry, "geokernel: linestring %s has fewer than 2 vertices", f.ID)
		}
		if distM == 0 {
			return nil, eris.Wrapf(model.ErrInvalidGeometry, "geokernel: zero-width buffer of linestring %s", f.ID)
		}
		ring := offsetClosedWalk(lineToClosedWalk(walk), distM, segments)
		return ringsToPolygon(proj, [][][2]float64{ring}), nil

	default:
		return nil, eris.Wrapf(model.ErrInvalidGeometry, "geokernel: cannot buffer %T", f.Geometry)
	}
}

// MergeOverlapping unions buffer polygons that share interior area, pairwise
// and transitively. The merged geometry is the convex hull of each overlap
// group, which is conservative for protection and exclusion zones.
func MergeOverlapping(polys []*geom.Polygon) []*geom.Polygon {
	if len(polys) < 2 {
		return polys
	}
	// Union-find over the overlap relation.
	parent := make([]int, len(polys))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := 0; i < len(polys); i++ {
		for j := i + 1; j < len(polys); j++ {
			if Intersects(polys[i], polys[j]) {
				parent[find(j)] = find(i)
			}
		}
	}

	groups := make(map[int][]*geom.Polygon)
	order := make([]int, 0, len(polys))
	for i, p := range polys {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], p)
	}

	out := make([]*geom.Polygon, 0, len(order))
	for _, root := range order {
		group := groups[root]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		var pts []geom.Coord
		for _, p := range group {
			pts = append(pts, p.LinearRing(0).Coords()...)
		}
		out = append(out, hullPolygon(pts))
	}
	return out
}

func bufferPolygon(proj planeProjection, p *geom.Polygon, distM float64, segments int) (*geom.Polygon, error) {
	var rings [][][2]float64

	shell := projectRing(proj, p.LinearRing(0).Coords())
	if signedArea(shell) < 0 {
		reverseWalk(shell)
	}
	rings = append(rings, offsetClosedWalk(shell, distM, segments))

	// Holes shrink as the buffer grows; collapsed holes are dropped.
	for r := 1; r < p.NumLinearRings(); r++ {
		hole := projectRing(proj, p.LinearRing(r).Coords())
		if signedArea(hole) > 0 {
			reverseWalk(hole)
		}
		shrunk := offsetClosedWalk(hole, distM, segments)
		if len(shrunk) >= 3 && math.Abs(signedArea(shrunk)) > 1e-6 {
			rings = append(rings, shrunk)
		}
	}
	return ringsToPolygon(proj, rings), nil
}

// offsetClosedWalk offsets a closed vertex walk by d meters on its right-hand
// side, inserting circular arcs where consecutive offset edges leave a gap.
// A counterclockwise ring grows outward; a clockwise ring (or a degenerate
// there-and-back polyline walk) shrinks inward or forms a capsule.
func offsetClosedWalk(walk [][2]float64, d float64, segments int) [][2]float64 {
	n := len(walk)
	if n < 2 || d <= 0 {
		return append([][2]float64(nil), walk...)
	}
	var out [][2]float64
	for i := 0; i < n; i++ {
		prev := walk[(i-1+n)%n]
		cur := walk[i]
		next := walk[(i+1)%n]

		n1x, n1y, ok1 := rightNormal(prev, cur)
		n2x, n2y, ok2 := rightNormal(cur, next)
		if !ok1 && !ok2 {
			continue
		}
		if !ok1 {
			n1x, n1y = n2x, n2y
		}
		if !ok2 {
			n2x, n2y = n1x, n1y
		}

		p1 := [2]float64{cur[0] + n1x*d, cur[1] + n1y*d}
		p2 := [2]float64{cur[0] + n2x*d, cur[1] + n2y*d}

		cross := (cur[0]-prev[0])*(next[1]-cur[1]) - (cur[1]-prev[1])*(next[0]-cur[0])
		if cross >= 0 {
			// Left turn (or straight/u-turn): the offset edges diverge, fill
			// the gap with an arc around the original vertex.
			out = append(out, p1)
			out = append(out, arc(cur, d, math.Atan2(n1y, n1x), math.Atan2(n2y, n2x), segments)...)
			out = append(out, p2)
		} else {
			// Right turn: naive join, the small overlap is tolerated.
			out = append(out, p1, p2)
		}
	}
	return out
}

// rightNormal returns the unit normal on the right-hand side of the segment
// a to b, or ok=false for a zero-length segment.
func rightNormal(a, b [2]float64) (nx, ny float64, ok bool) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0, false
	}
	return dy / l, -dx / l, true
}

// arc emits intermediate points sweeping counterclockwise from angle a1 to a2
// around center at radius d.
func arc(center [2]float64, d, a1, a2 float64, segments int) [][2]float64 {
	sweep := a2 - a1
	for sweep < 0 {
		sweep += 2 * math.Pi
	}
	steps := int(float64(segments) * sweep / (2 * math.Pi))
	pts := make([][2]float64, 0, steps)
	for s := 1; s <= steps; s++ {
		a := a1 + sweep*float64(s)/float64(steps+1)
		pts = append(pts, [2]float64{center[0] + d*math.Cos(a), center[1] + d*math.Sin(a)})
	}
	return pts
}

func circle(x, y, r float64, segments int) [][2]float64 {
	ring := make([][2]float64, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		ring[i] = [2]float64{x + r*math.Cos(a), y + r*math.Sin(a)}
	}
	return ring
}

// lineToClosedWalk turns an open polyline into the degenerate closed walk
// p0..pn..p1 whose right-side offset is the line's capsule outline.
func lineToClosedWalk(pts [][2]float64) [][2]float64 {
	walk := append([][2]float64(nil), pts...)
	for i := len(pts) - 2; i >= 1; i-- {
		walk = append(walk, pts[i])
	}
	return walk
}

func projectRing(proj planeProjection, coords []geom.Coord) [][2]float64 {
	// Drop the repeated closing vertex; closure is implicit in walk form.
	n := len(coords)
	if n > 1 && coords[0][0] == coords[n-1][0] && coords[0][1] == coords[n-1][1] {
		n--
	}
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		x, y := proj.forward(coords[i][0], coords[i][1])
		out[i] = [2]float64{x, y}
	}
	return out
}

func projectOpenWalk(proj planeProjection, coords []geom.Coord) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		x, y := proj.forward(c[0], c[1])
		out[i] = [2]float64{x, y}
	}
	return out
}

func signedArea(walk [][2]float64) float64 {
	sum := 0.0
	n := len(walk)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += walk[i][0]*walk[j][1] - walk[j][0]*walk[i][1]
	}
	return sum / 2
}

func reverseWalk(walk [][2]float64) {
	for i, j := 0, len(walk)-1; i < j; i, j = i+1, j-1 {
		walk[i], walk[j] = walk[j], walk[i]
	}
}

// ringsToPolygon unprojects walks back to lon/lat and assembles a polygon.
// The first walk is the shell, the rest are holes.
func ringsToPolygon(proj planeProjection, rings [][][2]float64) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	for _, ring := range rings {
		flat := make([]float64, 0, (len(ring)+1)*2)
		for _, pt := range ring {
			lon, lat := proj.inverse(pt[0], pt[1])
			flat = append(flat, lon, lat)
		}
		// Close the ring.
		if len(ring) > 0 {
			lon, lat := proj.inverse(ring[0][0], ring[0][1])
			flat = append(flat, lon, lat)
		}
		_ = p.Push(geom.NewLinearRingFlat(geom.XY, flat))
	}
	return p
}

func clonePolygon(p *geom.Polygon) *geom.Polygon {
	out := geom.NewPolygon(geom.XY)
	for r := 0; r < p.NumLinearRings(); r++ {
		coords := p.LinearRing(r).Coords()
		flat := make([]float64, 0, len(coords)*2)
		for _, c := range coords {
			flat = append(flat, c[0], c[1])
		}
		_ = out.Push(geom.NewLinearRingFlat(geom.XY, flat))
	}
	return out
}

func degeneratePointPolygon(lon, lat float64) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	_ = p.Push(geom.NewLinearRingFlat(geom.XY, []float64{lon, lat, lon, lat, lon, lat, lon, lat}))
	return p
}

// hullPolygon builds the convex hull of a point set (Andrew's monotone
// chain) as a polygon.
func hullPolygon(pts []geom.Coord) *geom.Polygon {
	sorted := append([]geom.Coord(nil), pts...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			if sorted[j][0] < sorted[j-1][0] ||
				(sorted[j][0] == sorted[j-1][0] && sorted[j][1] < sorted[j-1][1]) {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			} else {
				break
			}
		}
	}

	var lower, upper []geom.Coord
	for _, p := range sorted {
		for len(lower) >= 2 && orient(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && orient(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	flat := make([]float64, 0, (len(hull)+1)*2)
	for _, c := range hull {
		flat = append(flat, c[0], c[1])
	}
	if len(hull) > 0 {
		flat = append(flat, hull[0][0], hull[0][1])
	}
	out := geom.NewPolygon(geom.XY)
	_ = out.Push(geom.NewLinearRingFlat(geom.XY, flat))
	return out
}
