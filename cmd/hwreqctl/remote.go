package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphummel/hwreq/internal/apiclient"
	"github.com/tphummel/hwreq/internal/rules"
)

var (
	endpointFlag string
	tokenFlag    string
	queryFlag    string
	pageFlag     int
	perPageFlag  int
	remoteFlag   bool
)

// newClient builds the API client from --endpoint/--token, falling back to
// HWREQ_ENDPOINT and HWREQ_TOKEN.
func newClient() (*apiclient.Client, error) {
	endpoint, token := apiclient.ResolveConfig(
		endpointFlag, tokenFlag,
		os.Getenv(apiclient.EnvEndpoint), os.Getenv(apiclient.EnvToken),
	)
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint: set --endpoint or %s", apiclient.EnvEndpoint)
	}
	return apiclient.NewClient(endpoint, token)
}

// addRemoteFlag lets an offline command run against the service instead.
func addRemoteFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "Use the service at --endpoint instead of working locally")
	addServiceFlags(cmd)
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&endpointFlag, "endpoint", "", "Service URL (default $"+apiclient.EnvEndpoint+")")
	cmd.Flags().StringVar(&tokenFlag, "token", "", "Bearer token (default $"+apiclient.EnvToken+")")
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored requirement sets",
		Long: `List requirement set summaries, most recently updated first.

Examples:
  hwreqctl list
  hwreqctl list -q 阿里 --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			page, err := client.ListRequirementSets(cmd.Context(), apiclient.ListOptions{
				Query:   queryFlag,
				Page:    pageFlag,
				PerPage: perPageFlag,
			})
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), *page, outputFmt)
		},
	}
	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Customer id substring")
	cmd.Flags().IntVar(&pageFlag, "page", 0, "Page number (default 1)")
	cmd.Flags().IntVar(&perPageFlag, "per-page", 0, "Page size (default 10)")
	addServiceFlags(cmd)
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stored requirement set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			set, err := client.GetRequirementSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), *set, outputFmt)
		},
	}
	addServiceFlags(cmd)
	return cmd
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a requirement set document",
		Long: `Create a customer's requirement set from a document.

Examples:
  hwreqctl create -f set.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readSetDocument(setFile)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			set, err := client.CreateRequirementSet(cmd.Context(), doc.CustomerID, doc.Rules)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), *set, outputFmt)
		},
	}
	cmd.Flags().StringVarP(&setFile, "filename", "f", "", "Requirement set file (required)")
	cmd.MarkFlagRequired("filename")
	addServiceFlags(cmd)
	return cmd
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the rules of a stored requirement set",
		Long: `Replace every rule of a stored requirement set with the rules of a
document. The document's customer_id is ignored; a set keeps its customer.

Examples:
  hwreqctl update 3f1c... -f set.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readSetDocument(setFile)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			set, err := client.UpdateRequirementSet(cmd.Context(), args[0], doc.Rules)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), *set, outputFmt)
		},
	}
	cmd.Flags().StringVarP(&setFile, "filename", "f", "", "Requirement set file (required)")
	cmd.MarkFlagRequired("filename")
	addServiceFlags(cmd)
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored requirement set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.DeleteRequirementSet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	addServiceFlags(cmd)
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Evaluate a hardware profile against a stored requirement set",
		Long: `Send a hardware profile to the service and print the verdict.

Examples:
  hwreqctl check 3f1c... -p profile.yaml
  hwreqctl check 3f1c... -p profile.yaml --archetype GPU -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().StringVarP(&profileFile, "profile", "p", "", "Hardware profile file (required)")
	cmd.MarkFlagRequired("profile")
	addEvaluateFlags(cmd)
	addServiceFlags(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	if archetype != "" && !rules.ServerArchetype(archetype).Valid() {
		return &rules.ValidationError{Code: rules.CodeInvalidArchetype, Detail: archetype}
	}
	profile, err := readProfile(profileFile)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	res, err := client.Evaluate(cmd.Context(), args[0], profile, apiclient.EvaluateOptions{
		FullTrace: fullTrace,
		Archetype: rules.ServerArchetype(archetype),
	})
	if err != nil {
		return err
	}
	return outputResult(cmd.OutOrStdout(), *res, outputFmt)
}
