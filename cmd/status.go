package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/topbeat/reconcile-cli/internal/reconcile"
	"github.com/topbeat/reconcile-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show import history and current reconciliation metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()

		batches, err := env.Store.ListBatches(ctx, 10)
		if err != nil {
			return err
		}
		fmt.Printf("recent imports (%d):\n", len(batches))
		for _, b := range batches {
			fmt.Printf("  %-10s %-22s %-8s %4d rows (%d new, %d updated, %d failed)  %s\n",
				b.ID[:8], b.Source, b.Status, b.TotalRows, b.NewRows, b.UpdatedRows, b.FailedRows, b.Filename)
		}

		unified, err := env.Store.QueryUnified(ctx, store.UnifiedFilter{})
		if err != nil {
			return err
		}
		if len(unified) == 0 {
			fmt.Println("no unified orders yet; run reconcile")
			return nil
		}

		m := reconcile.Summarize(unified)
		fmt.Printf("\nunified orders: %d\n", m.Total)
		for stage, n := range m.ByStage {
			fmt.Printf("  %-20s %d\n", string(stage)+":", n)
		}
		fmt.Printf("delivery rate: %.1f%%, RTO rate: %.1f%%\n", m.DeliveryRate*100, m.RTORate*100)
		fmt.Printf("revenue: actual %s, pending %s, lost %s\n",
			m.RevenueActual.StringFixed(2), m.RevenuePending.StringFixed(2), m.RevenueLost.StringFixed(2))

		open := false
		flagged, err := env.Store.ListFlags(ctx, store.FlagFilter{Resolved: &open})
		if err != nil {
			return err
		}
		fmt.Printf("open flags: %d\n", len(flagged))

		review, err := env.Store.ListReview(ctx, 1000)
		if err != nil {
			return err
		}
		fmt.Printf("review queue: %d\n", len(review))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
