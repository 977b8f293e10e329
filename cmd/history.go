package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/eventscout/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain the identity history store",
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := history.Open(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queries: %d\nleads:   %d\n", stats.Queries, stats.Leads)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than their re-admission windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := history.Open(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.PruneExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d entries\n", n)
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
