package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/topbeat/reconcile-cli/internal/match"
	"github.com/topbeat/reconcile-cli/internal/model"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Preview attendance-to-order waterfall matching",
	Long:  "Runs the identity waterfall over imported attendance rows without persisting anything. Useful for checking tier configuration before a reconcile pass commits the links to the audit trail.",
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

		orders, err := env.Store.ListRawOrders(ctx)
		if err != nil {
			return err
		}
		attendance, err := env.Store.ListRawAttendance(ctx)
		if err != nil {
			return err
		}

		matcherCfg := match.DefaultConfig()
		if cfg.Matcher.ConfigPath != "" {
			if matcherCfg, err = match.LoadConfig(cfg.Matcher.ConfigPath); err != nil {
				return err
			}
		}
		matcher := match.New(matcherCfg)

		entries := make([]match.Entry, 0, len(orders))
		for i, o := range orders {
			name, _ := env.Norm.Name(o.ShippingName)
			alt, _ := env.Norm.Name(o.BillingName)
			entries = append(entries, match.Entry{
				OrderKey: o.OrderKey,
				Email:    o.Email,
				Phone:    o.Phone,
				Name:     name,
				AltName:  alt,
				Seq:      i,
			})
		}
		snap := match.NewSnapshot(entries)

		linked, missed := 0, 0
		for _, a := range attendance {
			name, _ := env.Norm.Name(a.ParticipantName)
			d := matcher.Match(match.Candidate{
				Source:     model.SourceAttendance,
				NaturalKey: a.MeetingID + "/" + a.ParticipantName,
				Email:      a.Email,
				Name:       name,
			}, snap)

			if d.Matched() {
				linked++
				fmt.Printf("%-40s -> %-10s %-12s tier=%d conf=%.2f\n",
					d.CandidateKey, d.MatchedKey, d.Method, d.Tier, d.Confidence)
			} else {
				missed++
				fmt.Printf("%-40s -> no match\n", d.CandidateKey)
			}
		}
		fmt.Printf("%d linked, %d unmatched (preview only, nothing written)\n", linked, missed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
}
