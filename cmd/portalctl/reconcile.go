package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"tuition/internal/reconcile"

	"github.com/spf13/cobra"
)

func reconcileCmd(a *app) *cobra.Command {
	var failOnOrphans bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report payments that reference unknown users",
		Long: `Fetch users and payments through the router and list every payment
whose user id is not registered. Nothing is changed in either store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			report, err := reconcile.New(c, slog.New(slog.DiscardHandler)).FindOrphans(cmd.Context())
			if err != nil {
				return err
			}

			if a.asJSON {
				if err := writeJSON(a.out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(a.out, "users: %d, payments: %d, orphaned payments: %d\n",
					report.Users, report.Payments, len(report.Orphans))
				if !report.Consistent() {
					rows := make([][]string, 0, len(report.Orphans))
					for _, p := range report.Orphans {
						rows = append(rows, []string{
							strconv.FormatInt(p.ID, 10),
							strconv.FormatInt(p.UserID, 10),
							formatAmount(p.Amount),
						})
					}
					if err := writeTable(a.out, []string{"PAYMENT", "UNKNOWN USER", "AMOUNT"}, rows); err != nil {
						return err
					}
				}
			}

			if failOnOrphans && !report.Consistent() {
				return errOrphansFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnOrphans, "fail", false, "Exit non-zero when orphaned payments exist")

	return cmd
}
