package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/hotspot"
	"github.com/pelagica/zoneplan/internal/ingest"
	"github.com/pelagica/zoneplan/internal/model"
)

var hotspotCmd = &cobra.Command{
	Use:   "hotspot",
	Short: "Detect statistical hotspots (Getis-Ord Gi*) in point observations",
	Long: `Compute the Getis-Ord Gi* statistic for every point feature and
classify it as a hot spot (99% or 95% confidence), cold spot, or not
significant. Neighbors are all points within the radius, the point itself
included.

Example:
  hotspot --features catches.geojson --attribute fish_abundance \
    --radius-km 25 --out hotspots.geojson`,
	RunE: runHotspot,
}

func init() {
	f := hotspotCmd.Flags()
	f.String("features", "", "GeoJSON point feature collection")
	f.String("attribute", string(model.AttrValue), "numeric attribute to analyze")
	f.Float64("radius-km", 0, "neighborhood radius in kilometers (default from config)")
	f.String("out", "", "write classified points as GeoJSON to this path")
	_ = hotspotCmd.MarkFlagRequired("features")

	rootCmd.AddCommand(hotspotCmd)
}

func runHotspot(cmd *cobra.Command, _ []string) error {
	log := zap.L().With(zap.String("command", "hotspot"))

	featuresPath, _ := cmd.Flags().GetString("features")
	attribute, _ := cmd.Flags().GetString("attribute")
	radiusKM, _ := cmd.Flags().GetFloat64("radius-km")
	outPath, _ := cmd.Flags().GetString("out")

	if radiusKM <= 0 {
		radiusKM = cfg.Engine.HotspotRadiusKM
	}

	features, err := ingest.LoadGeoJSON(featuresPath)
	if err != nil {
		return err
	}

	results, err := hotspot.DetectWorkers(features, model.AttributeKey(attribute), radiusKM*1000, cfg.Engine.Workers)
	if err != nil {
		return eris.Wrap(err, "hotspot: detect")
	}

	counts := map[hotspot.Classification]int{}
	for _, r := range results {
		counts[r.Classification]++
	}
	log.Info("hotspot detection complete",
		zap.Int("features", len(results)),
		zap.Float64("radius_km", radiusKM),
	)

	fmt.Printf("Analyzed %d points (radius %.1f km)\n", len(results), radiusKM)
	for _, class := range []hotspot.Classification{
		hotspot.HotSpot99, hotspot.HotSpot95, hotspot.ColdSpot95, hotspot.ColdSpot99, hotspot.NotSignificant,
	} {
		if counts[class] > 0 {
			fmt.Printf("  %-16s %d\n", class, counts[class])
		}
	}

	if outPath != "" {
		fc, err := ingest.HotspotCollection(features, results)
		if err != nil {
			return err
		}
		if err := ingest.WriteGeoJSON(outPath, fc); err != nil {
			return err
		}
		fmt.Printf("Wrote classified points to %s\n", outPath)
	}
	return nil
}
