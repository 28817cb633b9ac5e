// Command portalctl drives the portal through the router: registering
// users, recording payments and checking the two stores against each other.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"tuition/internal/client"

	"github.com/spf13/cobra"
)

var Version = "dev"

const envGateway = "PORTAL_GATEWAY_URL"

// app carries what every subcommand shares.
type app struct {
	out     io.Writer
	gateway string
	timeout time.Duration
	asJSON  bool
}

func main() {
	root := newRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	defaultGateway := os.Getenv(envGateway)
	if defaultGateway == "" {
		defaultGateway = "http://localhost:3000"
	}

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "portalctl - command line client for the tuition portal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&a.gateway, "gateway", defaultGateway, "Router base URL (env "+envGateway+")")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 15*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&a.asJSON, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(usersCmd(a))
	rootCmd.AddCommand(paymentsCmd(a))
	rootCmd.AddCommand(reconcileCmd(a))

	return rootCmd
}

func (a *app) client() (*client.Client, error) {
	return client.New(a.gateway, client.WithHTTPClient(newHTTPClient(a.timeout)))
}
