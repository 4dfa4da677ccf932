package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/topbeat/reconcile-cli/internal/reconcile"
)

var reconcileJSON bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a full reconciliation pass",
	Long:  "Links every imported shipment, payment, and attendance row to a canonical order, merges the linked rows into unified orders, evaluates the reconciliation rules, and persists flags. Safe to re-run at any time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(cmd.Context()); err != nil {
			return err
		}

		runner, err := newRunner(env)
		if err != nil {
			return err
		}

		summary, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		if reconcileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		printSummary(summary)
		return nil
	},
}

func printSummary(s *reconcile.Summary) {
	fmt.Printf("reconciled %d orders\n", s.Orders)
	for source, n := range s.Linked {
		fmt.Printf("  linked %-22s %d\n", string(source)+":", n)
	}
	fmt.Printf("  unmatched (review queue): %d\n", s.Unmatched)
	fmt.Printf("  flags raised:             %d\n", s.FlagsRaised)

	m := s.Metrics
	fmt.Printf("delivery: %d/%d delivered (%.1f%%), %d RTO (%.1f%%)\n",
		m.Delivered, m.Shipped, m.DeliveryRate*100, m.RTO, m.RTORate*100)
	fmt.Printf("revenue: actual %s, pending %s, lost %s\n",
		m.RevenueActual.StringFixed(2), m.RevenuePending.StringFixed(2), m.RevenueLost.StringFixed(2))
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "emit the full summary as JSON")
	rootCmd.AddCommand(reconcileCmd)
}
