package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/tphummel/hwreq/internal/apiclient"
	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/evaluator"
	"github.com/tphummel/hwreq/internal/rules"
)

// CatalogResult is the result of a catalog command.
type CatalogResult struct {
	Categories []catalog.CategoryDefinition `json:"categories"`
}

// ValidateResult is the result of a validate command.
type ValidateResult struct {
	Valid      bool   `json:"valid"`
	CustomerID string `json:"customer_id"`
	Rules      int    `json:"rules"`
	Indicators int    `json:"indicators,omitempty"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// outputResult writes result to w in the specified format.
func outputResult(w io.Writer, result any, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	case "table", "":
		return outputTable(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func outputJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func outputTable(out io.Writer, result any) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case CatalogResult:
		return outputCatalogTable(w, r)
	case ValidateResult:
		return outputValidateTable(w, r)
	case evaluator.Result:
		return outputEvaluationTable(w, r)
	case apiclient.ListPage:
		return outputListTable(w, r)
	case rules.RequirementSet:
		return outputSetTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputCatalogTable(w *tabwriter.Writer, r CatalogResult) error {
	fmt.Fprintln(w, "CATEGORY\tFIELD\tTYPE\tVALUES")
	for _, c := range r.Categories {
		for _, f := range c.Fields {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, f.Key, f.ValueType, strings.Join(f.AllowedValues, ","))
		}
	}
	return nil
}

func outputValidateTable(w *tabwriter.Writer, r ValidateResult) error {
	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "CUSTOMER:\t%s\n", r.CustomerID)
	fmt.Fprintf(w, "STATUS:\t%s\n", status)
	fmt.Fprintf(w, "RULES:\t%d\n", r.Rules)
	if r.Valid {
		fmt.Fprintf(w, "INDICATORS:\t%d\n", r.Indicators)
	} else {
		fmt.Fprintf(w, "CODE:\t%s\n", r.Code)
		fmt.Fprintf(w, "ERROR:\t%s\n", r.Error)
	}
	return nil
}

func outputEvaluationTable(w *tabwriter.Writer, r evaluator.Result) error {
	verdict := "SATISFIED"
	if !r.Satisfied {
		verdict = "UNSATISFIED"
	}
	fmt.Fprintf(w, "VERDICT:\t%s\n", verdict)
	if r.MatchedRuleID != "" {
		fmt.Fprintf(w, "MATCHED RULE:\t%s\n", r.MatchedRuleID)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RULE\tARCHETYPE\tFIELD\tOP\tEXPECTED\tOBSERVED\tSTATUS\tREASON")
	for i, rr := range r.Rules {
		if len(rr.Indicators) == 0 {
			fmt.Fprintf(w, "%d\t%s\t-\t\t\t\t%s\t\n", i+1, rr.ServerArchetype, rr.Status)
			continue
		}
		for _, ir := range rr.Indicators {
			fmt.Fprintf(w, "%d\t%s\t%s/%s\t%s\t%s\t%s\t%s\t%s\n",
				i+1, rr.ServerArchetype, ir.Category, ir.FieldKey, ir.Operator,
				ir.Expected, ir.Observed, ir.Status, ir.Reason)
		}
	}
	return nil
}

func outputListTable(w *tabwriter.Writer, r apiclient.ListPage) error {
	fmt.Fprintf(w, "TOTAL\t%d\n", r.Total)
	fmt.Fprintf(w, "PAGE\t%d\n\n", r.Page)

	fmt.Fprintln(w, "ID\tCUSTOMER\tRULES\tINDICATORS\tCATEGORIES\tUPDATED")
	for _, s := range r.Items {
		cats := make([]string, len(s.Categories))
		for i, c := range s.Categories {
			cats[i] = string(c)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			s.ID, s.CustomerID, s.RuleCount, s.IndicatorCount,
			strings.Join(cats, ","), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func outputSetTable(w *tabwriter.Writer, s rules.RequirementSet) error {
	fmt.Fprintf(w, "ID:\t%s\n", s.ID)
	fmt.Fprintf(w, "CUSTOMER:\t%s\n", s.CustomerID)
	fmt.Fprintf(w, "UPDATED:\t%s\n\n", s.UpdatedAt.Format("2006-01-02 15:04"))

	fmt.Fprintln(w, "RULE\tARCHETYPE\tCONDITION")
	for i, r := range s.Rules {
		for _, ind := range r.Indicators {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, r.ServerArchetype, ind)
		}
	}
	return nil
}
