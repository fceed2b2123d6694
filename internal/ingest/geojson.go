// Package ingest converts external spatial data (GeoJSON, shapefiles, YAML
// decision specs) into the engine's model types, and exports results back out
// as GeoJSON. It is the only package that touches serialization formats.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/model"
)

// DefaultCRS is assumed for GeoJSON input, per RFC 7946.
const DefaultCRS = "EPSG:4326"

// LoadGeoJSON reads a GeoJSON FeatureCollection into spatial features.
// Numeric properties matching the engine's attribute vocabulary land in the
// typed attribute map; everything else is kept as string extras. Features
// without an id get a positional one.
func LoadGeoJSON(path string) ([]model.SpatialFeature, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return ParseGeoJSON(raw)
}

// ParseGeoJSON converts FeatureCollection bytes into spatial features.
func ParseGeoJSON(raw []byte) ([]model.SpatialFeature, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "ingest: parse feature collection")
	}

	features := make([]model.SpatialFeature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		if gf.Geometry == nil {
			return nil, eris.Wrapf(model.ErrInvalidGeometry, "ingest: feature %d has null geometry", i)
		}
		f := model.SpatialFeature{
			ID:         gf.ID,
			Geometry:   gf.Geometry,
			CRS:        DefaultCRS,
			Attributes: propertiesToAttributes(gf.Properties),
		}
		if f.ID == "" {
			if id, ok := gf.Properties["id"].(string); ok && id != "" {
				f.ID = id
			} else {
				f.ID = fmt.Sprintf("feat_%04d", i)
			}
		}
		if err := f.Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: feature %d", i)
		}
		features = append(features, f)
	}
	zap.L().Debug("ingest: geojson parsed", zap.Int("features", len(features)))
	return features, nil
}

// LoadHabitats reads a GeoJSON FeatureCollection of habitat features. The
// habitat type comes from a "habitat_type" property (falling back to the
// generic kind tag) and carrying capacity from "capacity".
func LoadHabitats(path string) ([]model.Habitat, error) {
	features, err := LoadGeoJSON(path)
	if err != nil {
		return nil, err
	}
	habitats := make([]model.Habitat, 0, len(features))
	for _, f := range features {
		h := model.Habitat{SpatialFeature: f}
		if f.Attributes.Extra != nil {
			h.HabitatType = f.Attributes.Extra["habitat_type"]
		}
		if h.HabitatType == "" {
			h.HabitatType = f.Kind()
		}
		if capStr, ok := f.Attributes.Extra["capacity"]; ok {
			if cap, err := strconv.ParseFloat(capStr, 64); err == nil {
				h.Capacity = cap
			}
		}
		habitats = append(habitats, h)
	}
	return habitats, nil
}

// propertiesToAttributes splits GeoJSON properties into the typed numeric
// vocabulary and the string extension map. Unknown numeric properties are
// preserved as extras rather than dropped.
func propertiesToAttributes(props map[string]interface{}) model.Attributes {
	attrs := model.Attributes{}
	for k, v := range props {
		if k == "id" {
			continue
		}
		switch tv := v.(type) {
		case float64:
			key := model.AttributeKey(k)
			if model.KnownAttribute(key) {
				if attrs.Known == nil {
					attrs.Known = make(map[model.AttributeKey]float64)
				}
				attrs.Known[key] = tv
			} else {
				setExtra(&attrs, k, strconv.FormatFloat(tv, 'g', -1, 64))
			}
		case bool:
			setExtra(&attrs, k, strconv.FormatBool(tv))
		case string:
			setExtra(&attrs, k, tv)
		}
	}
	return attrs
}

func setExtra(attrs *model.Attributes, k, v string) {
	if attrs.Extra == nil {
		attrs.Extra = make(map[string]string)
	}
	attrs.Extra[k] = v
}
