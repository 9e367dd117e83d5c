package main

import (
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/evaluator"
	"github.com/tphummel/hwreq/internal/rules"
)

// setDocument is the file form of a requirement set. It is the same shape
// the service accepts on POST /api/v1/requirements, in YAML or JSON.
type setDocument struct {
	CustomerID string            `json:"customer_id"`
	Rules      []rules.RuleInput `json:"rules"`
}

// readDocument decodes a YAML or JSON file into v through its JSON tags.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func readSetDocument(path string) (setDocument, error) {
	var doc setDocument
	err := readDocument(path, &doc)
	return doc, err
}

func readProfile(path string) (evaluator.Profile, error) {
	profile := evaluator.Profile{}
	err := readDocument(path, &profile)
	return profile, err
}

func loadCatalog() (*catalog.Catalog, error) {
	if catalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(catalogPath)
}

// buildSet turns a document into a requirement set without saving checks, so
// drafts can still be evaluated.
func buildSet(cat *catalog.Catalog, doc setDocument) (rules.RequirementSet, error) {
	built, err := rules.BuildRules(cat, doc.Rules)
	if err != nil {
		return rules.RequirementSet{}, err
	}
	now := time.Now()
	return rules.ReplaceRules(rules.NewRequirementSet(doc.CustomerID, now), built, now), nil
}
