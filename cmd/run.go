package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runDryRun bool
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one discovery run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runDryRun {
			cfg.Pipeline.DryRun = true
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.pipeline.Execute(ctx)
		if err != nil {
			return err
		}

		if runJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Run %s\n", result.RunID)
		fmt.Printf("  queries:            %d\n", len(result.Queries))
		fmt.Printf("  candidates:         %d\n", len(result.Candidates))
		fmt.Printf("  duplicates removed: %d\n", result.DuplicatesRemoved)
		fmt.Printf("  leads:              %d\n", len(result.Leads))
		fmt.Printf("  escalations:        %d\n", len(result.Escalations))
		fmt.Printf("  quality score:      %.2f\n", result.Stats.QualityScore)
		fmt.Printf("  cost:               $%.4f\n", result.Stats.CostUSD)
		if result.Shortfall {
			fmt.Println("  WARNING: yield below configured floor")
		}

		zap.L().Info("run finished",
			zap.String("run_id", result.RunID),
			zap.Int("leads", len(result.Leads)),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip the output sink")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run result as JSON")
	rootCmd.AddCommand(runCmd)
}
