// Package cmd implements the doclantern CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🏮"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "doclantern",
	Short: logo + " doclantern — documentation lookup bot",
	Long:  logo + " doclantern — a chat bot that answers library questions from official documentation",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
}
