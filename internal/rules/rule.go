package rules

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tphummel/hwreq/internal/catalog"
)

// ServerArchetype is the server class a rule applies to.
type ServerArchetype string

const (
	ArchetypeGPU ServerArchetype = "GPU"
	ArchetypeCPU ServerArchetype = "CPU"
)

func (a ServerArchetype) Valid() bool {
	return a == ArchetypeGPU || a == ArchetypeCPU
}

// Rule is one acceptable hardware profile: a profile satisfies the rule when
// it satisfies every indicator. Indicator order is insertion order and only
// matters for display.
type Rule struct {
	ID              string          `json:"id"`
	ServerArchetype ServerArchetype `json:"server_archetype"`
	Indicators      []Indicator     `json:"indicators"`
}

// NewRule starts an empty draft rule.
func NewRule(archetype ServerArchetype) Rule {
	return Rule{ID: uuid.NewString(), ServerArchetype: archetype, Indicators: []Indicator{}}
}

// Has reports whether the rule already constrains ref.
func (r Rule) Has(ref FieldRef) bool {
	return slices.ContainsFunc(r.Indicators, func(i Indicator) bool { return i.Ref() == ref })
}

// AddIndicatorToRule returns a copy of r with ind appended. It fails with
// ErrDuplicateField when r already has a condition on the same field.
func AddIndicatorToRule(r Rule, ind Indicator) (Rule, error) {
	if r.Has(ind.Ref()) {
		return r, fieldError(CodeDuplicateField, ind.Ref(), "")
	}
	out := r
	out.Indicators = append(slices.Clip(r.Indicators), ind)
	return out, nil
}

// RemoveIndicator returns a copy of r without the indicator with the given
// id. Unknown ids leave the rule unchanged. The result may be empty.
func RemoveIndicator(r Rule, indicatorID string) Rule {
	out := r
	out.Indicators = slices.DeleteFunc(slices.Clone(r.Indicators), func(i Indicator) bool {
		return i.ID == indicatorID
	})
	return out
}

// FinalizeRule builds a rule from indicators, which must be non-empty and
// free of duplicate fields.
func FinalizeRule(archetype ServerArchetype, indicators []Indicator) (Rule, error) {
	r := NewRule(archetype)
	r.Indicators = slices.Clone(indicators)
	if r.Indicators == nil {
		r.Indicators = []Indicator{}
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Finalize checks a draft rule and returns it unchanged when it is complete.
func (r Rule) Finalize() (Rule, error) {
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks the structural invariants of a rule.
func (r Rule) Validate() error {
	if !r.ServerArchetype.Valid() {
		return &ValidationError{Code: CodeInvalidArchetype, Detail: string(r.ServerArchetype)}
	}
	if len(r.Indicators) == 0 {
		return &ValidationError{Code: CodeEmptyRule}
	}
	seen := make(map[FieldRef]bool, len(r.Indicators))
	for _, ind := range r.Indicators {
		if seen[ind.Ref()] {
			return fieldError(CodeDuplicateField, ind.Ref(), "")
		}
		seen[ind.Ref()] = true
	}
	return nil
}

// Categories lists the categories the rule touches, in first-use order.
func (r Rule) Categories() []catalog.CategoryID {
	var out []catalog.CategoryID
	for _, ind := range r.Indicators {
		if !slices.Contains(out, ind.Category) {
			out = append(out, ind.Category)
		}
	}
	return out
}

// RuleInput is raw editor input for a whole rule.
type RuleInput struct {
	ServerArchetype ServerArchetype  `json:"server_archetype"`
	Indicators      []IndicatorInput `json:"indicators"`
}

// BuildRule runs every input through CreateIndicator and AddIndicatorToRule,
// then finalizes the result.
func BuildRule(cat *catalog.Catalog, in RuleInput) (Rule, error) {
	if !in.ServerArchetype.Valid() {
		return Rule{}, &ValidationError{Code: CodeInvalidArchetype, Detail: string(in.ServerArchetype)}
	}
	r := NewRule(in.ServerArchetype)
	for i, raw := range in.Indicators {
		ind, err := CreateIndicator(cat, raw)
		if err != nil {
			return Rule{}, fmt.Errorf("indicator %d: %w", i, err)
		}
		if r, err = AddIndicatorToRule(r, ind); err != nil {
			return Rule{}, fmt.Errorf("indicator %d: %w", i, err)
		}
	}
	return r.Finalize()
}
