package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphummel/hwreq/internal/apiclient"
	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/evaluator"
	"github.com/tphummel/hwreq/internal/rules"
)

var (
	setFile     string
	profileFile string
	fullTrace   bool
	archetype   string
)

// errInvalid makes validate exit non-zero after printing its report.
var errInvalid = errors.New("requirement set is invalid")

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [category]",
		Short: "List catalog categories and fields",
		Long: `List the fields requirement rules can constrain.

Examples:
  # Every category
  hwreqctl catalog

  # Fields of one category as YAML
  hwreqctl catalog Memory -o yaml

  # The catalog the service validates against
  hwreqctl catalog --remote`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCatalog,
	}
	addRemoteFlag(cmd)
	return cmd
}

// commandCatalog is the service's catalog with --remote and the local one
// otherwise.
func commandCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	if !remoteFlag {
		return loadCatalog()
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defs, err := client.Catalog(cmd.Context())
	if err != nil {
		return nil, err
	}
	return catalog.New(defs)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := commandCatalog(cmd)
	if err != nil {
		return err
	}
	defs := cat.Definitions()
	if len(args) == 1 {
		id := catalog.CategoryID(args[0])
		if !cat.HasCategory(id) {
			return fmt.Errorf("unknown category %q", id)
		}
		defs = []catalog.CategoryDefinition{{ID: id, Label: labelOf(cat, id), Fields: cat.FieldsFor(id)}}
	}
	return outputResult(cmd.OutOrStdout(), CatalogResult{Categories: defs}, outputFmt)
}

func labelOf(cat *catalog.Catalog, id catalog.CategoryID) string {
	for _, c := range cat.Categories() {
		if c.ID == id {
			return c.Label
		}
	}
	return string(id)
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a requirement set document",
		Long: `Build every rule in a requirement set document against the catalog
and check that the set could be saved.

Examples:
  hwreqctl validate -f set.yaml`,
		RunE: runValidate,
	}
	cmd.Flags().StringVarP(&setFile, "filename", "f", "", "Requirement set file (required)")
	cmd.MarkFlagRequired("filename")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	doc, err := readSetDocument(setFile)
	if err != nil {
		return err
	}

	result := ValidateResult{CustomerID: doc.CustomerID, Rules: len(doc.Rules)}
	set, err := buildSet(cat, doc)
	if err == nil {
		err = set.Validate(cat)
	}
	if err != nil {
		code, _ := rules.CodeOf(err)
		result.Code = string(code)
		result.Error = err.Error()
	} else {
		result.Valid = true
		result.Indicators = set.IndicatorCount()
	}

	if err := outputResult(cmd.OutOrStdout(), result, outputFmt); err != nil {
		return err
	}
	if !result.Valid {
		return errInvalid
	}
	return nil
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a hardware profile against a requirement set document",
		Long: `Evaluate a hardware profile locally and print the verdict with a trace.

The exit status is zero whatever the verdict; only unreadable or invalid
input fails the command.

Examples:
  hwreqctl evaluate -f set.yaml -p profile.yaml
  hwreqctl evaluate -f set.yaml -p profile.yaml --full-trace -o json

  # Let the service evaluate the unsaved document
  hwreqctl evaluate -f set.yaml -p profile.yaml --remote`,
		RunE: runEvaluate,
	}
	cmd.Flags().StringVarP(&setFile, "filename", "f", "", "Requirement set file (required)")
	cmd.Flags().StringVarP(&profileFile, "profile", "p", "", "Hardware profile file (required)")
	addEvaluateFlags(cmd)
	addRemoteFlag(cmd)
	cmd.MarkFlagRequired("filename")
	cmd.MarkFlagRequired("profile")
	return cmd
}

func addEvaluateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&fullTrace, "full-trace", false, "Evaluate every indicator instead of stopping at the first verdict")
	cmd.Flags().StringVar(&archetype, "archetype", "", "Only consider rules for this server archetype (GPU or CPU)")
}

func evaluateOptions() ([]evaluator.Option, error) {
	var opts []evaluator.Option
	if fullTrace {
		opts = append(opts, evaluator.WithFullTrace())
	}
	if archetype != "" {
		a := rules.ServerArchetype(archetype)
		if !a.Valid() {
			return nil, &rules.ValidationError{Code: rules.CodeInvalidArchetype, Detail: archetype}
		}
		opts = append(opts, evaluator.ForArchetype(a))
	}
	return opts, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	opts, err := evaluateOptions()
	if err != nil {
		return err
	}
	doc, err := readSetDocument(setFile)
	if err != nil {
		return err
	}
	profile, err := readProfile(profileFile)
	if err != nil {
		return err
	}

	if remoteFlag {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.EvaluateDraft(cmd.Context(), doc.Rules, profile, apiclient.EvaluateOptions{
			FullTrace: fullTrace,
			Archetype: rules.ServerArchetype(archetype),
		})
		if err != nil {
			return err
		}
		return outputResult(cmd.OutOrStdout(), *res, outputFmt)
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	set, err := buildSet(cat, doc)
	if err != nil {
		return err
	}
	res := evaluator.Evaluate(set, profile, opts...)
	return outputResult(cmd.OutOrStdout(), res, outputFmt)
}
