package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagica/zoneplan/internal/ingest"
	"github.com/pelagica/zoneplan/internal/mcda"
	"github.com/pelagica/zoneplan/internal/model"
	"github.com/pelagica/zoneplan/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full zone designation over a feature set",
	Long: `Run the zone designation pipeline: score candidate polygons against
the decision spec, apply hard constraints, and emit the ranked zones.

Candidate polygons, observation points, and coastline features come from the
--features GeoJSON; habitats (for the connectivity criterion) from --habitats.
The decision spec is a YAML file, or use --objective for a built-in criteria
set (aquaculture, fishing, conservation).

Examples:
  # Built-in aquaculture criteria with weighted sum
  analyze --features sites.geojson --objective aquaculture

  # Custom spec with TOPSIS and habitat connectivity
  analyze --features sites.geojson --habitats reefs.geojson \
    --spec criteria.yaml --out zones.geojson

  # With a sensitivity report on the designation
  analyze --features sites.geojson --objective fishing --sensitivity`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("features", "", "GeoJSON feature collection (candidates, observations, coastline)")
	f.String("habitats", "", "GeoJSON habitat collection for connectivity")
	f.String("spec", "", "YAML decision spec")
	f.String("objective", "", "built-in criteria set: aquaculture, fishing, conservation")
	f.String("method", "weighted_sum", "ranking method: weighted_sum or topsis")
	f.String("out", "", "write ranked zones as GeoJSON to this path")
	f.Duration("timeout", 5*time.Minute, "abort the run after this long")
	f.Bool("sensitivity", false, "report weight sensitivity after ranking")
	_ = analyzeCmd.MarkFlagRequired("features")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "analyze"))

	featuresPath, _ := cmd.Flags().GetString("features")
	habitatsPath, _ := cmd.Flags().GetString("habitats")
	outPath, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	wantSensitivity, _ := cmd.Flags().GetBool("sensitivity")

	spec, err := resolveSpec(cmd)
	if err != nil {
		return err
	}

	features, err := ingest.LoadGeoJSON(featuresPath)
	if err != nil {
		return err
	}
	var habitats []model.Habitat
	if habitatsPath != "" {
		habitats, err = ingest.LoadHabitats(habitatsPath)
		if err != nil {
			return err
		}
	}

	runner := &pipeline.Runner{
		Workers:         cfg.Engine.Workers,
		MobilityRangeKM: cfg.Engine.MobilityRangeKM,
		HotspotRadiusM:  cfg.Engine.HotspotRadiusKM * 1000,
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := runner.Run(runCtx, features, habitats, *spec, cfg.Engine.Constraints.ZoneConstraints())
	if err != nil {
		return eris.Wrap(err, "analyze: run")
	}

	log.Info("designation complete",
		zap.String("run_id", result.RunID),
		zap.Int("zones", len(result.Zones)),
		zap.Int("rejections", len(result.Rejections)),
	)
	printZoneResult(result)

	if wantSensitivity && len(result.Zones) > 1 {
		if err := printSensitivity(result, spec); err != nil {
			return err
		}
	}

	if outPath != "" {
		if err := ingest.WriteGeoJSON(outPath, ingest.ZoneResultCollection(result)); err != nil {
			return err
		}
		fmt.Printf("Wrote %d zones to %s\n", len(result.Zones), outPath)
	}
	return nil
}

// resolveSpec builds the decision spec from --spec or --objective.
func resolveSpec(cmd *cobra.Command) (*model.DecisionSpec, error) {
	specPath, _ := cmd.Flags().GetString("spec")
	objective, _ := cmd.Flags().GetString("objective")
	method, _ := cmd.Flags().GetString("method")

	switch {
	case specPath != "" && objective != "":
		return nil, eris.New("analyze: --spec and --objective are mutually exclusive")
	case specPath != "":
		return ingest.LoadDecisionSpec(specPath)
	case objective != "":
		return mcda.SpecForObjective(objective, model.RankMethod(method))
	default:
		return nil, eris.New("analyze: one of --spec or --objective is required")
	}
}

func printZoneResult(result *model.ZoneResult) {
	if result.InconsistentWeights {
		fmt.Println("WARNING: criterion weights derive from inconsistent pairwise judgments (CR > 0.1)")
	}
	if len(result.Zones) == 0 {
		fmt.Println("No zones satisfied the constraints.")
	}
	for i, zone := range result.Zones {
		fmt.Printf("%2d. %-20s score %.4f\n", i+1, zone.ID, zone.RankScore)
	}
	for _, rej := range result.Rejections {
		fmt.Printf("    rejected %-12s [%s] %s\n", rej.CandidateID, rej.Constraint, rej.Detail)
	}
}

// printSensitivity reruns the ranking with perturbed weights over the
// surviving zones' raw scores.
func printSensitivity(result *model.ZoneResult, spec *model.DecisionSpec) error {
	ids := make([]string, len(result.Zones))
	values := make([][]float64, len(result.Zones))
	for i, zone := range result.Zones {
		ids[i] = zone.ID
		row := make([]float64, len(spec.Criteria))
		for j, crit := range spec.Criteria {
			row[j] = zone.Scores[crit.Name]
		}
		values[i] = row
	}
	matrix, err := model.NewDecisionMatrix(ids, spec.Criteria, values)
	if err != nil {
		return eris.Wrap(err, "analyze: sensitivity matrix")
	}
	report, err := mcda.Sensitivity(matrix, spec, cfg.Engine.PerturbationPct)
	if err != nil {
		return eris.Wrap(err, "analyze: sensitivity")
	}

	fmt.Printf("\nSensitivity (±%.0f%% weight perturbation, baseline top: %s)\n",
		report.PerturbationPct, report.BaselineTop)
	for _, cs := range report.Criteria {
		status := "stable"
		if cs.TopChangedUp || cs.TopChangedDown {
			status = "FLIPS"
			if cs.TopUp != "" {
				status += " up->" + cs.TopUp
			}
			if cs.TopDown != "" {
				status += " down->" + cs.TopDown
			}
		}
		fmt.Printf("  %-20s %s\n", cs.Criterion, status)
	}
	return nil
}
