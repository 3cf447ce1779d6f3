// Command bountyctl is the operator CLI: it parses comment text offline
// and inspects or resets the shared circuit breakers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set with -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bountyctl",
		Short:         "bountyctl - operator tool for the BountyBot command gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("conf", "c", "", "config path, eg: -c config.yaml")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(breakerCmd())

	return rootCmd
}
