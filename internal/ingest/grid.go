package ingest

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/model"
)

// kmPerDegreeLat is the meridional degree length used for grid sizing.
const kmPerDegreeLat = 111.0

// GenerateGrid tiles a geographic bounding box with square candidate cells of
// roughly cellKM kilometers on a side. Cells are tagged kind=candidate and
// numbered row-major from the southwest corner (grid_0001, grid_0002, ...),
// so output order is deterministic.
//
// Longitude step is widened by 1/cos(midLat) so cells stay square on the
// ground away from the equator.
func GenerateGrid(minLon, minLat, maxLon, maxLat, cellKM float64) ([]model.SpatialFeature, error) {
	if cellKM <= 0 {
		return nil, eris.Errorf("ingest: grid cell size must be positive, got %g km", cellKM)
	}
	if minLon >= maxLon || minLat >= maxLat {
		return nil, eris.Errorf("ingest: degenerate bounding box [%g %g %g %g]", minLon, minLat, maxLon, maxLat)
	}
	if math.Abs(minLat) >= 89 || math.Abs(maxLat) >= 89 {
		return nil, eris.New("ingest: grid generation is not supported at polar latitudes")
	}

	midLat := (minLat + maxLat) / 2
	stepLat := cellKM / kmPerDegreeLat
	stepLon := cellKM / (kmPerDegreeLat * math.Cos(midLat*math.Pi/180))

	var cells []model.SpatialFeature
	n := 0
	for lat := minLat; lat < maxLat; lat += stepLat {
		top := math.Min(lat+stepLat, maxLat)
		for lon := minLon; lon < maxLon; lon += stepLon {
			right := math.Min(lon+stepLon, maxLon)
			n++
			ring := []float64{
				lon, lat,
				right, lat,
				right, top,
				lon, top,
				lon, lat,
			}
			cells = append(cells, model.SpatialFeature{
				ID:       fmt.Sprintf("grid_%04d", n),
				Geometry: geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}),
				CRS:      DefaultCRS,
				Attributes: model.Attributes{
					Extra: map[string]string{"kind": "candidate"},
				},
			})
		}
	}
	return cells, nil
}
