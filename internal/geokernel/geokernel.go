// Package geokernel provides the geodesic primitives underneath the
// connectivity, hotspot, and corridor analyses: distance, buffering, area,
// and point-in-polygon over lon/lat features.
package geokernel

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/model"
)

// Distance returns the great-circle distance in meters between two features.
// Non-point geometries are measured centroid to centroid. Features declaring
// different coordinate reference systems are rejected with CrsMismatch.
func Distance(a, b *model.SpatialFeature) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if a.CRS != b.CRS {
		return 0, eris.Wrapf(model.ErrCrsMismatch, "geokernel: %s declares %s, %s declares %s",
			a.ID, a.CRS, b.ID, b.CRS)
	}
	lon1, lat1, err := Centroid(a.Geometry)
	if err != nil {
		return 0, eris.Wrapf(err, "geokernel: centroid of %s", a.ID)
	}
	lon2, lat2, err := Centroid(b.Geometry)
	if err != nil {
		return 0, eris.Wrapf(err, "geokernel: centroid of %s", b.ID)
	}
	return Haversine(lon1, lat1, lon2, lat2), nil
}

// Centroid returns the lon/lat centroid of a geometry. Polygons use the
// area-weighted centroid of the outer ring; linestrings and points use the
// vertex mean.
func Centroid(g geom.T) (lon, lat float64, err error) {
	switch t := g.(type) {
	case *geom.Point:
		c := t.Coords()
		return c[0], c[1], nil
	case *geom.LineString:
		return coordMean(t.Coords())
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return 0, 0, eris.Wrap(model.ErrInvalidGeometry, "geokernel: polygon has no rings")
		}
		return ringCentroid(t.LinearRing(0).Coords())
	default:
		return 0, 0, eris.Wrapf(model.ErrInvalidGeometry, "geokernel: unsupported geometry %T", g)
	}
}

func coordMean(coords []geom.Coord) (lon, lat float64, err error) {
	if len(coords) == 0 {
		return 0, 0, eris.Wrap(model.ErrInvalidGeometry, "geokernel: empty coordinate set")
	}
	for _, c := range coords {
		lon += c[0]
		lat += c[1]
	}
	n := float64(len(coords))
	return lon / n, lat / n, nil
}

// ringCentroid computes the area-weighted centroid of a closed ring using the
// shoelace decomposition. Falls back to the vertex mean for degenerate rings.
func ringCentroid(ring []geom.Coord) (lon, lat float64, err error) {
	if len(ring) < 3 {
		return 0, 0, eris.Wrap(model.ErrInvalidGeometry, "geokernel: ring has fewer than 3 vertices")
	}
	var area, cx, cy float64
	for i := 0; i < len(ring)-1; i++ {
		cross := ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
		area += cross
		cx += (ring[i][0] + ring[i+1][0]) * cross
		cy += (ring[i][1] + ring[i+1][1]) * cross
	}
	if math.Abs(area) < 1e-12 {
		return coordMean(ring)
	}
	area /= 2
	return cx / (6 * area), cy / (6 * area), nil
}

// Area returns the surface area of a polygon in square meters. The polygon is
// projected onto a plane centered at its centroid before the shoelace sum, so
// lon/lat inputs are measured in meters rather than degrees. Holes are
// subtracted.
func Area(p *geom.Polygon) (float64, error) {
	if p == nil || p.NumLinearRings() == 0 {
		return 0, eris.Wrap(model.ErrInvalidGeometry, "geokernel: empty polygon")
	}
	lon0, lat0, err := ringCentroid(p.LinearRing(0).Coords())
	if err != nil {
		return 0, err
	}
	proj := newPlaneProjection(lon0, lat0)

	total := 0.0
	for r := 0; r < p.NumLinearRings(); r++ {
		a := math.Abs(projectedRingArea(proj, p.LinearRing(r).Coords()))
		if r == 0 {
			total += a
		} else {
			total -= a
		}
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

func projectedRingArea(proj planeProjection, ring []geom.Coord) float64 {
	if len(ring) < 3 {
		return 0
	}
	sum := 0.0
	x0, y0 := proj.forward(ring[0][0], ring[0][1])
	px, py := x0, y0
	for i := 1; i < len(ring); i++ {
		x, y := proj.forward(ring[i][0], ring[i][1])
		sum += px*y - x*py
		px, py = x, y
	}
	// Close the ring if the input does not repeat the first vertex.
	sum += px*y0 - x0*py
	return sum / 2
}

// Contains reports whether the point lies inside the polygon (holes
// excluded). Points on the boundary count as inside.
func Contains(p *geom.Polygon, pt *geom.Point) bool {
	if p == nil || pt == nil || p.NumLinearRings() == 0 {
		return false
	}
	c := pt.Coords()
	if !pointInRing(c[0], c[1], p.LinearRing(0).Coords()) {
		return false
	}
	for r := 1; r < p.NumLinearRings(); r++ {
		if pointInRing(c[0], c[1], p.LinearRing(r).Coords()) {
			return false
		}
	}
	return true
}

// pointInRing is the even-odd ray casting test, with an explicit on-edge
// check so boundary points are deterministic. The repeated closing vertex is
// dropped before iterating: keeping it would make the wrap-around segment
// zero length.
func pointInRing(x, y float64, ring []geom.Coord) bool {
	n := len(ring)
	if n > 1 && ring[0][0] == ring[n-1][0] && ring[0][1] == ring[n-1][1] {
		n--
	}
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if onSegment(x, y, xi, yi, xj, yj) {
			return true
		}
		if (yi > y) != (yj > y) {
			xCross := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	const eps = 1e-12
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if math.Abs(cross) > eps {
		return false
	}
	dot := (px-x1)*(x2-x1) + (py-y1)*(y2-y1)
	if dot < -eps {
		return false
	}
	lenSq := (x2-x1)*(x2-x1) + (y2-y1)*(y2-y1)
	// A zero-length segment is a point; cross and dot are 0 for any query.
	if lenSq <= eps {
		return math.Abs(px-x1) <= eps && math.Abs(py-y1) <= eps
	}
	return dot <= lenSq+eps
}

// Intersects reports whether two polygons share interior area. Touching
// boundaries do not count.
func Intersects(a, b *geom.Polygon) bool {
	if a == nil || b == nil || a.NumLinearRings() == 0 || b.NumLinearRings() == 0 {
		return false
	}
	ringA := a.LinearRing(0).Coords()
	ringB := b.LinearRing(0).Coords()

	// A boundary point of one polygon strictly inside the other proves shared
	// interior area. Vertices alone miss grid-aligned overlaps whose corners
	// all land on the other's boundary, so edge midpoints are sampled too.
	if boundaryPointInside(ringA, b, ringB) || boundaryPointInside(ringB, a, ringA) {
		return true
	}
	// Proper edge crossings catch overlaps with no contained boundary points.
	for i := 0; i < len(ringA)-1; i++ {
		for j := 0; j < len(ringB)-1; j++ {
			if segmentsCross(ringA[i], ringA[i+1], ringB[j], ringB[j+1]) {
				return true
			}
		}
	}
	// Coincident polygons have their whole boundary on the other's boundary
	// and no proper crossing; an interior representative point settles those.
	if interiorPointInside(a, b, ringB) || interiorPointInside(b, a, ringA) {
		return true
	}
	return false
}

// boundaryPointInside reports whether any vertex or edge midpoint of ring
// lies strictly inside other (boundary hits excluded).
func boundaryPointInside(ring []geom.Coord, other *geom.Polygon, otherRing []geom.Coord) bool {
	strictlyInside := func(x, y float64) bool {
		pt := geom.NewPointFlat(geom.XY, []float64{x, y})
		return Contains(other, pt) && !onRingBoundary(x, y, otherRing)
	}
	for _, c := range ring {
		if strictlyInside(c[0], c[1]) {
			return true
		}
	}
	for i := 0; i < len(ring)-1; i++ {
		mx := (ring[i][0] + ring[i+1][0]) / 2
		my := (ring[i][1] + ring[i+1][1]) / 2
		if strictlyInside(mx, my) {
			return true
		}
	}
	return false
}

// interiorPointInside reports whether the centroid of p is a shared interior
// point of both polygons. The centroid must land inside p itself, which holds
// for the convex-leaning zone shapes this kernel handles.
func interiorPointInside(p, other *geom.Polygon, otherRing []geom.Coord) bool {
	lon, lat, err := Centroid(p)
	if err != nil {
		return false
	}
	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	return Contains(p, pt) && Contains(other, pt) && !onRingBoundary(lon, lat, otherRing)
}

func onRingBoundary(x, y float64, ring []geom.Coord) bool {
	for i := 0; i < len(ring)-1; i++ {
		if onSegment(x, y, ring[i][0], ring[i][1], ring[i+1][0], ring[i+1][1]) {
			return true
		}
	}
	return false
}

// segmentsCross reports a proper crossing of two segments (shared endpoints
// excluded).
func segmentsCross(a1, a2, b1, b2 geom.Coord) bool {
	d1 := orient(b1, b2, a1)
	d2 := orient(b1, b2, a2)
	d3 := orient(a1, a2, b1)
	d4 := orient(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c geom.Coord) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// ValidatePolygon rejects empty, under-sized, or self-intersecting outer
// rings with InvalidGeometry.
func ValidatePolygon(p *geom.Polygon) error {
	if p == nil || p.NumLinearRings() == 0 {
		return eris.Wrap(model.ErrInvalidGeometry, "geokernel: empty polygon")
	}
	ring := p.LinearRing(0).Coords()
	if len(ring) < 4 {
		return eris.Wrap(model.ErrInvalidGeometry, "geokernel: outer ring has fewer than 3 distinct vertices")
	}
	if ringSelfIntersects(ring) {
		return eris.Wrap(model.ErrInvalidGeometry, "geokernel: outer ring self-intersects")
	}
	return nil
}

// ringSelfIntersects checks every non-adjacent segment pair for a proper
// crossing. O(n²) over the ring size, which is fine for zone-scale polygons.
func ringSelfIntersects(ring []geom.Coord) bool {
	n := len(ring) - 1 // last vertex repeats the first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			// Skip adjacent segments, including the closing pair.
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}
