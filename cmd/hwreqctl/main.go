// hwreqctl validates and evaluates hardware requirement sets, offline or
// against a running hwreq service.
//
// Usage:
//
//	hwreqctl catalog Memory
//	hwreqctl validate -f set.yaml
//	hwreqctl evaluate -f set.yaml -p profile.yaml --full-trace
//	hwreqctl list -q 阿里
//	hwreqctl check <id> -p profile.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version     = "dev"
	outputFmt   string
	catalogPath string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hwreqctl",
		Short: "Validate and evaluate hardware requirement sets",
		Long: `hwreqctl works with customer hardware requirement sets.

The catalog, validate and evaluate commands run locally against YAML or
JSON documents; catalog and evaluate take --remote to ask the service
instead. The list, get, create, update, delete and check commands talk to
a hwreq service at --endpoint (or HWREQ_ENDPOINT) using --token (or
HWREQ_TOKEN).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")

	// Offline commands
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(evaluateCmd())

	// Service commands
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(checkCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
