package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List unmatched records queued for manual review",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := env.Store.ListReview(cmd.Context(), reviewLimit)
		if err != nil {
			return err
		}

		for _, it := range items {
			fmt.Printf("%-22s %-30s email=%-30s phone=%-12s %s\n",
				it.Source, it.NaturalKey, it.Email, it.Phone, it.Reason)
		}
		fmt.Printf("%d items\n", len(items))
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <order-key>",
	Short: "Show the match decision trail for one order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		decisions, err := env.Store.ListDecisions(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, d := range decisions {
			fmt.Printf("%s  %-22s %-30s -> %-10s %-12s tier=%d conf=%.2f\n",
				d.CreatedAt.Format("2006-01-02 15:04:05"),
				d.CandidateSource, d.CandidateKey, d.MatchedKey, d.Method, d.Tier, d.Confidence)
		}
		fmt.Printf("%d decisions\n", len(decisions))
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 100, "maximum items to list")
	rootCmd.AddCommand(reviewCmd, auditCmd)
}
