package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/model"
)

// LoadShapefile reads a .shp/.dbf pair into spatial features. Points,
// polylines, and polygons are supported; other shape types fail the load.
// DBF attributes are parsed the same way as GeoJSON properties: known numeric
// fields become typed attributes, the rest become string extras.
//
// Shapefiles carry no CRS in-band (.prj is not parsed), so coordinates are
// assumed geographic WGS84.
func LoadShapefile(path string) ([]model.SpatialFeature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}
	idIdx := -1
	for i, n := range names {
		if n == "id" {
			idIdx = i
			break
		}
	}

	var features []model.SpatialFeature
	for reader.Next() {
		num, shape := reader.Shape()
		if shape == nil {
			continue
		}
		g, err := shapeToGeom(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: shapefile record %d", num)
		}
		if g == nil {
			continue
		}

		f := model.SpatialFeature{
			Geometry: g,
			CRS:      DefaultCRS,
		}
		for i, name := range names {
			val := strings.TrimSpace(reader.Attribute(i))
			if val == "" || i == idIdx {
				continue
			}
			if num, err := strconv.ParseFloat(val, 64); err == nil {
				key := model.AttributeKey(name)
				if model.KnownAttribute(key) {
					if f.Attributes.Known == nil {
						f.Attributes.Known = make(map[model.AttributeKey]float64)
					}
					f.Attributes.Known[key] = num
					continue
				}
			}
			setExtra(&f.Attributes, name, val)
		}
		if idIdx >= 0 {
			f.ID = strings.TrimSpace(reader.Attribute(idIdx))
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("shp_%04d", num)
		}
		if err := f.Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: shapefile record %d", num)
		}
		features = append(features, f)
	}
	zap.L().Debug("ingest: shapefile loaded",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return features, nil
}

// shapeToGeom converts a shapefile shape to the engine's geometry model.
// Multi-part polygons become one polygon whose first part is the shell and
// remaining parts are holes; multi-part polylines are concatenated.
func shapeToGeom(s shp.Shape) (geom.T, error) {
	switch shape := s.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{shape.X, shape.Y}), nil
	case *shp.PolyLine:
		flat := make([]float64, 0, len(shape.Points)*2)
		for _, p := range shape.Points {
			flat = append(flat, p.X, p.Y)
		}
		if len(flat) < 4 {
			return nil, eris.Wrap(model.ErrInvalidGeometry, "polyline with fewer than 2 points")
		}
		return geom.NewLineStringFlat(geom.XY, flat), nil
	case *shp.Polygon:
		return polygonToGeom(shape)
	case *shp.Null:
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported shape type %T", s)
	}
}

func polygonToGeom(p *shp.Polygon) (geom.T, error) {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil, eris.Wrap(model.ErrInvalidGeometry, "empty polygon")
	}
	flat := make([]float64, 0, len(p.Points)*2)
	ends := make([]int, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends), nil
}
