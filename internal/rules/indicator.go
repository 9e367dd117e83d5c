// Package rules is the hardware requirement model: indicators (one condition
// on one field), rules (all indicators must hold) and requirement sets (any
// rule may hold).
//
// Every operation returns a new value and leaves its inputs untouched.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tphummel/hwreq/internal/catalog"
)

// FieldRef names one field of one category.
type FieldRef struct {
	Category catalog.CategoryID `json:"category"`
	FieldKey string             `json:"field_key"`
}

func (r FieldRef) String() string { return string(r.Category) + "/" + r.FieldKey }

// Indicator is a single condition against a hardware attribute.
type Indicator struct {
	ID       string             `json:"id"`
	Category catalog.CategoryID `json:"category"`
	FieldKey string             `json:"field_key"`
	Operator Operator           `json:"operator"`
	Operand  Operand            `json:"operand"`
}

func (i Indicator) Ref() FieldRef {
	return FieldRef{Category: i.Category, FieldKey: i.FieldKey}
}

func (i Indicator) String() string {
	return i.Ref().String() + " " + string(i.Operator) + " " + i.Operand.String()
}

// IndicatorInput is raw editor input for one indicator. Numeric fields read
// Value, enum fields read Values.
type IndicatorInput struct {
	Category catalog.CategoryID `json:"category"`
	FieldKey string             `json:"field_key"`
	Operator string             `json:"operator,omitempty"`
	Value    string             `json:"value,omitempty"`
	Values   []string           `json:"values,omitempty"`
}

// UnmarshalJSON also accepts a bare JSON number for value, which is what
// YAML documents produce for unquoted thresholds.
func (in *IndicatorInput) UnmarshalJSON(b []byte) error {
	type plain IndicatorInput
	var aux struct {
		plain
		Value json.RawMessage `json:"value,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*in = IndicatorInput(aux.plain)

	raw := bytes.TrimSpace(aux.Value)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		in.Value = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &in.Value)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("indicator value must be a number or a string, got %s", raw)
		}
		in.Value = n.String()
	}
	return nil
}

// CreateIndicator validates in against cat and builds an Indicator.
//
// Numeric fields default to ">=" when no operator is given. Enum fields only
// accept "=" and match when the observed label is any of the selected ones.
func CreateIndicator(cat *catalog.Catalog, in IndicatorInput) (Indicator, error) {
	ref := FieldRef{Category: in.Category, FieldKey: strings.TrimSpace(in.FieldKey)}
	def, ok := cat.Lookup(ref.Category, ref.FieldKey)
	if !ok {
		return Indicator{}, fieldError(CodeUnknownField, ref, "")
	}

	ind := Indicator{ID: uuid.NewString(), Category: ref.Category, FieldKey: ref.FieldKey}

	switch def.ValueType {
	case catalog.Numeric:
		op := GreaterOrEqual
		if strings.TrimSpace(in.Operator) != "" {
			parsed, ok := ParseOperator(in.Operator)
			if !ok {
				return Indicator{}, fieldError(CodeInvalidOperator, ref, in.Operator)
			}
			op = parsed
		}
		raw := strings.TrimSpace(in.Value)
		if raw == "" {
			return Indicator{}, fieldError(CodeEmptyValue, ref, "")
		}
		d, err := ParseNumber(raw)
		if err != nil {
			return Indicator{}, fieldError(CodeNotANumber, ref, raw)
		}
		ind.Operator = op
		ind.Operand = NumberOperand(d)

	case catalog.Enum:
		if op := strings.TrimSpace(in.Operator); op != "" && Operator(op) != Equal {
			return Indicator{}, fieldError(CodeInvalidOperator, ref, op)
		}
		operand := LabelsOperand(in.Values)
		if operand.IsEmpty() {
			return Indicator{}, fieldError(CodeEmptySelection, ref, "")
		}
		for _, l := range operand.labels {
			if !def.Allows(l) {
				return Indicator{}, fieldError(CodeInvalidEnumValue, ref, l)
			}
		}
		ind.Operator = Equal
		ind.Operand = operand
	}

	return ind, nil
}

// CheckIndicator re-validates an indicator that did not come from
// CreateIndicator, for example one decoded from storage.
func CheckIndicator(cat *catalog.Catalog, ind Indicator) error {
	ref := ind.Ref()
	def, ok := cat.Lookup(ref.Category, ref.FieldKey)
	if !ok {
		return fieldError(CodeUnknownField, ref, "")
	}
	switch def.ValueType {
	case catalog.Numeric:
		if !slices.Contains(NumericOperators, ind.Operator) {
			return fieldError(CodeInvalidOperator, ref, string(ind.Operator))
		}
		if !ind.Operand.IsNumeric() {
			return fieldError(CodeNotANumber, ref, ind.Operand.String())
		}
	case catalog.Enum:
		if ind.Operator != Equal {
			return fieldError(CodeInvalidOperator, ref, string(ind.Operator))
		}
		if ind.Operand.IsNumeric() {
			return fieldError(CodeInvalidEnumValue, ref, ind.Operand.String())
		}
		if ind.Operand.IsEmpty() {
			return fieldError(CodeEmptySelection, ref, "")
		}
		for _, l := range ind.Operand.labels {
			if !def.Allows(l) {
				return fieldError(CodeInvalidEnumValue, ref, l)
			}
		}
	}
	return nil
}
