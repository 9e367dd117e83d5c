package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphummel/hwreq/internal/catalog"
)

// RequirementSet is a customer's configuration. A profile satisfies the set
// when it satisfies at least one rule; an empty set is never satisfiable.
type RequirementSet struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Rules      []Rule    `json:"rules"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewRequirementSet starts an empty set owned by customerID.
func NewRequirementSet(customerID string, now time.Time) RequirementSet {
	now = now.UTC()
	return RequirementSet{
		ID:         uuid.NewString(),
		CustomerID: strings.TrimSpace(customerID),
		Rules:      []Rule{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddRule returns a copy of s with r appended. Rules may overlap in the fields
// they constrain since each one is an alternative profile.
func AddRule(s RequirementSet, r Rule, now time.Time) RequirementSet {
	out := s
	out.Rules = append(slices.Clip(s.Rules), r)
	out.UpdatedAt = now.UTC()
	return out
}

// RemoveRule returns a copy of s without the rule with the given id.
func RemoveRule(s RequirementSet, ruleID string, now time.Time) RequirementSet {
	out := s
	out.Rules = slices.DeleteFunc(slices.Clone(s.Rules), func(r Rule) bool { return r.ID == ruleID })
	if len(out.Rules) != len(s.Rules) {
		out.UpdatedAt = now.UTC()
	}
	return out
}

// ReplaceRules returns a copy of s whose rules are replaced wholesale.
func ReplaceRules(s RequirementSet, rules []Rule, now time.Time) RequirementSet {
	out := s
	out.Rules = slices.Clone(rules)
	out.UpdatedAt = now.UTC()
	return out
}

// FindRule returns the rule with the given id.
func (s RequirementSet) FindRule(ruleID string) (Rule, bool) {
	i := slices.IndexFunc(s.Rules, func(r Rule) bool { return r.ID == ruleID })
	if i < 0 {
		return Rule{}, false
	}
	return s.Rules[i], true
}

// Save checks that s is complete enough to persist: it needs rules, a
// customer, and every rule must itself be valid.
func Save(s RequirementSet) (RequirementSet, error) {
	if len(s.Rules) == 0 {
		return RequirementSet{}, &ValidationError{Code: CodeNoRules}
	}
	if strings.TrimSpace(s.CustomerID) == "" {
		return RequirementSet{}, &ValidationError{Code: CodeNoCustomer}
	}
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return RequirementSet{}, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return s, nil
}

// Validate runs Save's checks and re-checks every indicator against cat.
func (s RequirementSet) Validate(cat *catalog.Catalog) error {
	if _, err := Save(s); err != nil {
		return err
	}
	for i, r := range s.Rules {
		for j, ind := range r.Indicators {
			if err := CheckIndicator(cat, ind); err != nil {
				return fmt.Errorf("rule %d: indicator %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// Categories lists every category referenced by the set, in first-use order.
func (s RequirementSet) Categories() []catalog.CategoryID {
	var out []catalog.CategoryID
	for _, r := range s.Rules {
		for _, c := range r.Categories() {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// IndicatorCount is the total number of indicators across all rules.
func (s RequirementSet) IndicatorCount() int {
	n := 0
	for _, r := range s.Rules {
		n += len(r.Indicators)
	}
	return n
}

// BuildRules runs BuildRule over every input.
func BuildRules(cat *catalog.Catalog, inputs []RuleInput) ([]Rule, error) {
	out := make([]Rule, 0, len(inputs))
	for i, in := range inputs {
		r, err := BuildRule(cat, in)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
