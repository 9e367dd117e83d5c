// Package evaluator checks a hardware profile against a requirement set and
// explains the verdict rule by rule and indicator by indicator.
//
// Evaluation is pure: the same set and profile always produce the same
// Result. A missing or malformed measurement fails only the indicator it
// belongs to.
package evaluator

import (
	"strings"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/rules"
)

// Status is the outcome of one indicator or rule.
type Status string

const (
	StatusSatisfied   Status = "satisfied"
	StatusUnsatisfied Status = "unsatisfied"
	// StatusSkipped marks entries that were not evaluated because the verdict
	// was already decided.
	StatusSkipped Status = "skipped"
)

// Reason explains an unsatisfied indicator.
type Reason string

const (
	ReasonNotMet             Reason = "not_met"
	ReasonMissingMeasurement Reason = Reason(rules.CodeMissingMeasurement)
	ReasonTypeMismatch       Reason = Reason(rules.CodeTypeMismatch)
)

// IndicatorResult is the trace of one indicator.
type IndicatorResult struct {
	IndicatorID string             `json:"indicator_id"`
	Category    catalog.CategoryID `json:"category"`
	FieldKey    string             `json:"field_key"`
	Operator    rules.Operator     `json:"operator"`
	Expected    rules.Operand      `json:"expected"`
	Observed    string             `json:"observed,omitempty"`
	Status      Status             `json:"status"`
	Reason      Reason             `json:"reason,omitempty"`
}

// Err returns the validation error behind a missing or malformed
// measurement, or nil.
func (r IndicatorResult) Err() error {
	switch r.Reason {
	case ReasonMissingMeasurement, ReasonTypeMismatch:
		return &rules.ValidationError{
			Code:     rules.Code(r.Reason),
			Category: r.Category,
			FieldKey: r.FieldKey,
			Detail:   r.Observed,
		}
	}
	return nil
}

// RuleResult is the trace of one rule.
type RuleResult struct {
	RuleID          string                `json:"rule_id"`
	ServerArchetype rules.ServerArchetype `json:"server_archetype"`
	Status          Status                `json:"status"`
	Indicators      []IndicatorResult     `json:"indicators"`
}

// Result is the verdict for a requirement set.
type Result struct {
	Satisfied     bool         `json:"satisfied"`
	MatchedRuleID string       `json:"matched_rule_id,omitempty"`
	Rules         []RuleResult `json:"rules"`
}

// Unmet returns every evaluated indicator that was not satisfied.
func (r Result) Unmet() []IndicatorResult {
	var out []IndicatorResult
	for _, rr := range r.Rules {
		for _, ir := range rr.Indicators {
			if ir.Status == StatusUnsatisfied {
				out = append(out, ir)
			}
		}
	}
	return out
}

type options struct {
	fullTrace bool
	archetype rules.ServerArchetype
}

// Option tunes an evaluation.
type Option func(*options)

// WithFullTrace evaluates every indicator of every rule instead of stopping
// early. The verdict does not change.
func WithFullTrace() Option {
	return func(o *options) { o.fullTrace = true }
}

// ForArchetype only considers rules written for the given archetype; the
// others are reported as skipped.
func ForArchetype(a rules.ServerArchetype) Option {
	return func(o *options) { o.archetype = a }
}

// Evaluate checks profile against set. Rules are tried in order and the first
// satisfied rule decides the verdict; within a rule the first unsatisfied
// indicator fails it.
func Evaluate(set rules.RequirementSet, profile Profile, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Rules: make([]RuleResult, 0, len(set.Rules))}
	for _, r := range set.Rules {
		skip := (res.Satisfied && !o.fullTrace) || (o.archetype != "" && r.ServerArchetype != o.archetype)
		if skip {
			res.Rules = append(res.Rules, skippedRule(r))
			continue
		}
		rr := evaluateRule(r, profile, o.fullTrace)
		if rr.Status == StatusSatisfied && !res.Satisfied {
			res.Satisfied = true
			res.MatchedRuleID = r.ID
		}
		res.Rules = append(res.Rules, rr)
	}
	return res
}

func evaluateRule(r rules.Rule, profile Profile, fullTrace bool) RuleResult {
	rr := RuleResult{
		RuleID:          r.ID,
		ServerArchetype: r.ServerArchetype,
		Status:          StatusSatisfied,
		Indicators:      make([]IndicatorResult, 0, len(r.Indicators)),
	}
	// A rule with no indicators never matches.
	if len(r.Indicators) == 0 {
		rr.Status = StatusUnsatisfied
	}
	for _, ind := range r.Indicators {
		if rr.Status == StatusUnsatisfied && !fullTrace {
			rr.Indicators = append(rr.Indicators, skippedIndicator(ind))
			continue
		}
		ir := EvaluateIndicator(ind, profile)
		if ir.Status != StatusSatisfied {
			rr.Status = StatusUnsatisfied
		}
		rr.Indicators = append(rr.Indicators, ir)
	}
	return rr
}

// EvaluateIndicator checks a single indicator against profile.
func EvaluateIndicator(ind rules.Indicator, profile Profile) IndicatorResult {
	ir := indicatorResult(ind)

	observed, ok := profile.Lookup(ind.Category, ind.FieldKey)
	if !ok {
		ir.Status = StatusUnsatisfied
		ir.Reason = ReasonMissingMeasurement
		return ir
	}
	text := strings.TrimSpace(string(observed))
	ir.Observed = text

	var met bool
	if ind.Operand.IsNumeric() {
		d, err := rules.ParseNumber(text)
		if err != nil {
			ir.Status = StatusUnsatisfied
			ir.Reason = ReasonTypeMismatch
			return ir
		}
		met = ind.Operator.Compare(d, ind.Operand.Number())
	} else {
		met = ind.Operand.Contains(text)
	}

	if met {
		ir.Status = StatusSatisfied
	} else {
		ir.Status = StatusUnsatisfied
		ir.Reason = ReasonNotMet
	}
	return ir
}

func indicatorResult(ind rules.Indicator) IndicatorResult {
	return IndicatorResult{
		IndicatorID: ind.ID,
		Category:    ind.Category,
		FieldKey:    ind.FieldKey,
		Operator:    ind.Operator,
		Expected:    ind.Operand,
	}
}

func skippedIndicator(ind rules.Indicator) IndicatorResult {
	ir := indicatorResult(ind)
	ir.Status = StatusSkipped
	return ir
}

func skippedRule(r rules.Rule) RuleResult {
	rr := RuleResult{
		RuleID:          r.ID,
		ServerArchetype: r.ServerArchetype,
		Status:          StatusSkipped,
		Indicators:      make([]IndicatorResult, 0, len(r.Indicators)),
	}
	for _, ind := range r.Indicators {
		rr.Indicators = append(rr.Indicators, skippedIndicator(ind))
	}
	return rr
}
