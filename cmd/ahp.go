package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pelagica/zoneplan/internal/ingest"
	"github.com/pelagica/zoneplan/internal/mcda"
)

var ahpCmd = &cobra.Command{
	Use:   "ahp",
	Short: "Derive criterion weights from pairwise judgments",
	Long: `Derive a weight vector from an AHP pairwise judgment matrix and report
its consistency ratio. Judgments use Saaty's 1-9 scale; a consistency ratio
above 0.1 flags the matrix as inconsistent but still reports the weights.

The matrix file is YAML:

  criteria: [depth, temperature, wave_height]
  judgments:
    - [1, 2, 6]
    - [0.5, 1, 4]
    - [0.167, 0.25, 1]`,
	RunE: runAHP,
}

func init() {
	f := ahpCmd.Flags()
	f.String("matrix", "", "YAML pairwise judgment matrix")
	_ = ahpCmd.MarkFlagRequired("matrix")

	rootCmd.AddCommand(ahpCmd)
}

func runAHP(cmd *cobra.Command, _ []string) error {
	matrixPath, _ := cmd.Flags().GetString("matrix")

	names, matrix, err := ingest.LoadPairwise(matrixPath)
	if err != nil {
		return err
	}

	res, err := mcda.DeriveWeights(matrix)
	if err != nil {
		return eris.Wrap(err, "ahp: derive weights")
	}

	fmt.Println("Derived weights:")
	for i, w := range res.Weights {
		name := fmt.Sprintf("criterion_%d", i+1)
		if i < len(names) {
			name = names[i]
		}
		fmt.Printf("  %-20s %.4f\n", name, w)
	}
	fmt.Printf("\nlambda_max:        %.4f\n", res.LambdaMax)
	fmt.Printf("consistency index: %.4f\n", res.ConsistencyIndex)
	fmt.Printf("consistency ratio: %.4f\n", res.ConsistencyRatio)
	if res.Inconsistent {
		fmt.Println("WARNING: judgments are inconsistent (CR > 0.1); revisit the matrix")
	}
	return nil
}
