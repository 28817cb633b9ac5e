package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func paymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Record and list payments",
	}
	cmd.AddCommand(paymentsCreateCmd(a))
	cmd.AddCommand(paymentsListCmd(a))
	return cmd
}

func paymentsCreateCmd(a *app) *cobra.Command {
	var (
		userID int64
		amount float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a payment for a user id",
		Long: `Record a payment for a user id.

The ledger does not check that the user exists; run "portalctl reconcile"
to find payments whose user is unknown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			p, err := c.CreatePayment(cmd.Context(), userID, amount)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(a.out, p)
			}
			fmt.Fprintf(a.out, "recorded payment %d: user %d, amount %s\n", p.ID, p.UserID, formatAmount(p.Amount))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func paymentsListCmd(a *app) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments, optionally for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			var filter *int64
			if cmd.Flags().Changed("user") {
				filter = &userID
			}
			payments, err := c.ListPayments(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(a.out, payments)
			}
			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					strconv.FormatInt(p.UserID, 10),
					formatAmount(p.Amount),
				})
			}
			return writeTable(a.out, []string{"ID", "USER", "AMOUNT"}, rows)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Only payments for this user id")

	return cmd
}
