package corridor

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/pelagica/zoneplan/internal/geokernel"
	"github.com/pelagica/zoneplan/internal/model"
)

// Corridor is a least-cost path with its geometry: the route as a linestring
// and a buffered corridor polygon of the requested width.
type Corridor struct {
	Path    Path             `json:"path"`
	Route   *geom.LineString `json:"-"`
	Zone    *geom.Polygon    `json:"-"`
	LengthM float64          `json:"length_m"`
	AreaM2  float64          `json:"area_m2"`
	WidthM  float64          `json:"width_m"`
	CRS     string           `json:"crs"`
}

// BuildCorridor resolves a path's vertices against habitat locations and
// emits the route geometry plus a corridor polygon widthM meters wide.
func BuildCorridor(path Path, habitats []model.Habitat, widthM float64) (*Corridor, error) {
	if len(path.Vertices) < 2 {
		return nil, eris.New("corridor: path has fewer than 2 vertices")
	}
	if widthM <= 0 {
		return nil, eris.Errorf("corridor: width must be positive, got %g", widthM)
	}

	byID := make(map[string]*model.Habitat, len(habitats))
	for i := range habitats {
		byID[habitats[i].ID] = &habitats[i]
	}

	crs := ""
	flat := make([]float64, 0, len(path.Vertices)*2)
	var lengthM float64
	var prevLon, prevLat float64
	for i, id := range path.Vertices {
		h, ok := byID[id]
		if !ok {
			return nil, eris.Errorf("corridor: path vertex %s is not a known habitat", id)
		}
		if crs == "" {
			crs = h.CRS
		} else if h.CRS != crs {
			return nil, eris.Wrapf(model.ErrCrsMismatch, "corridor: habitat %s declares %s, expected %s", id, h.CRS, crs)
		}
		lon, lat, err := geokernel.Centroid(h.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "corridor: centroid of %s", id)
		}
		flat = append(flat, lon, lat)
		if i > 0 {
			lengthM += geokernel.Haversine(prevLon, prevLat, lon, lat)
		}
		prevLon, prevLat = lon, lat
	}

	route := geom.NewLineStringFlat(geom.XY, flat)
	routeFeature := model.SpatialFeature{
		ID:       "corridor",
		Geometry: route,
		CRS:      crs,
	}
	zone, err := geokernel.Buffer(&routeFeature, widthM/2)
	if err != nil {
		return nil, eris.Wrap(err, "corridor: buffer route")
	}
	area, err := geokernel.Area(zone)
	if err != nil {
		return nil, eris.Wrap(err, "corridor: corridor area")
	}

	return &Corridor{
		Path:    path,
		Route:   route,
		Zone:    zone,
		LengthM: lengthM,
		AreaM2:  area,
		WidthM:  widthM,
		CRS:     crs,
	}, nil
}
