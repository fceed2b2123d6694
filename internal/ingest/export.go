package ingest

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/pelagica/zoneplan/internal/hotspot"
	"github.com/pelagica/zoneplan/internal/model"
)

// ZoneResultCollection renders a designation result as a GeoJSON
// FeatureCollection. Each zone carries its rank position, rank score, and raw
// criterion scores as properties; run metadata rides on the first feature.
func ZoneResultCollection(res *model.ZoneResult) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for i, zone := range res.Zones {
		props := map[string]interface{}{
			"rank":       i + 1,
			"rank_score": zone.RankScore,
			"crs":        zone.CRS,
		}
		for name, v := range zone.Scores {
			props["score_"+name] = v
		}
		if i == 0 {
			props["run_id"] = res.RunID
			props["method"] = string(res.Method)
			if res.InconsistentWeights {
				props["inconsistent_weights"] = true
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         zone.ID,
			Geometry:   zone.Geometry,
			Properties: props,
		})
	}
	return fc
}

// HotspotCollection renders Gi* results as GeoJSON points. Feature order
// follows the input features the detection ran over.
func HotspotCollection(features []model.SpatialFeature, results []hotspot.Result) (*geojson.FeatureCollection, error) {
	if len(features) != len(results) {
		return nil, eris.Errorf("ingest: %d features but %d hotspot results", len(features), len(results))
	}
	fc := &geojson.FeatureCollection{}
	for i, r := range results {
		pt, ok := features[i].Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidGeometry, "ingest: hotspot feature %s is not a point", features[i].ID)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.FeatureID,
			Geometry: pt,
			Properties: map[string]interface{}{
				"z_score":        r.ZScore,
				"classification": string(r.Classification),
				"neighbors":      r.Neighbors,
			},
		})
	}
	return fc, nil
}

// WriteGeoJSON marshals a FeatureCollection to a file, pretty-printed so the
// output diffs cleanly in version control.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	raw, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal feature collection")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	return nil
}
