package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/store"
)

var (
	flagsFamily   string
	flagsSeverity string
	flagsOrderKey string
	flagsShowAll  bool
	resolveBy     string
	resolveNote   string
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect and resolve reconciliation flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flags, open ones by default",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.FlagFilter{
			Family:   model.FlagFamily(flagsFamily),
			Severity: model.Severity(flagsSeverity),
			OrderKey: flagsOrderKey,
		}
		if !flagsShowAll {
			open := false
			filter.Resolved = &open
		}

		found, err := env.Store.ListFlags(cmd.Context(), filter)
		if err != nil {
			return err
		}

		for _, f := range found {
			state := "open"
			if f.Resolved {
				state = "resolved by " + f.ResolvedBy
			}
			fmt.Printf("%-36s %-8s %-6s %-10s %-10s %s\n",
				f.ID, f.Code, f.Severity, f.OrderKey, state, f.Message)
		}
		fmt.Printf("%d flags\n", len(found))
		return nil
	},
}

var flagsResolveCmd = &cobra.Command{
	Use:   "resolve <flag-id>",
	Short: "Mark a flag resolved",
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

		if err := env.Store.ResolveFlag(cmd.Context(), args[0], resolveBy, resolveNote); err != nil {
			return err
		}

		fmt.Printf("flag %s resolved\n", args[0])
		return nil
	},
}

func init() {
	flagsListCmd.Flags().StringVar(&flagsFamily, "family", "", "filter by family (payment, delivery, rto, cost, data_quality, business)")
	flagsListCmd.Flags().StringVar(&flagsSeverity, "severity", "", "filter by severity (high, medium, low)")
	flagsListCmd.Flags().StringVar(&flagsOrderKey, "order", "", "filter by order key")
	flagsListCmd.Flags().BoolVar(&flagsShowAll, "all", false, "include resolved flags")

	flagsResolveCmd.Flags().StringVar(&resolveBy, "by", "", "who resolved the flag")
	flagsResolveCmd.Flags().StringVar(&resolveNote, "note", "", "resolution note")
	_ = flagsResolveCmd.MarkFlagRequired("by")

	flagsCmd.AddCommand(flagsListCmd, flagsResolveCmd)
	rootCmd.AddCommand(flagsCmd)
}
