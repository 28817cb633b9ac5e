package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Register and list users",
	}
	cmd.AddCommand(usersRegisterCmd(a))
	cmd.AddCommand(usersListCmd(a))
	return cmd
}

func usersRegisterCmd(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			user, err := c.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(a.out, user)
			}
			fmt.Fprintf(a.out, "registered user %d (%s)\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func usersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			users, err := c.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(a.out, users)
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email})
			}
			return writeTable(a.out, []string{"ID", "NAME", "EMAIL"}, rows)
		},
	}
}
