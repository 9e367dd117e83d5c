package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Operator compares an observed value with an indicator's operand.
type Operator string

const (
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
	Equal          Operator = "="
	Greater        Operator = ">"
	Less           Operator = "<"
)

// NumericOperators lists the operators accepted for numeric fields.
var NumericOperators = []Operator{GreaterOrEqual, LessOrEqual, Equal, Greater, Less}

// ParseOperator accepts the operator spellings used by the editors, including
// the legacy ">>" for ">".
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(s)
	if s == ">>" {
		return Greater, true
	}
	op := Operator(s)
	if slices.Contains(NumericOperators, op) {
		return op, true
	}
	return "", false
}

// MaxExponent bounds the decimal exponent ParseNumber accepts. Comparing two
// decimals rescales the one with the larger exponent, so the work grows with
// the exponent gap.
const MaxExponent = 64

// ParseNumber parses the text form of a numeric operand or observation.
// Values whose exponent lies outside ±MaxExponent are rejected.
func ParseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return decimal.Decimal{}, fmt.Errorf("exponent %d out of range", exp)
	}
	return d, nil
}

// Compare reports whether "observed op operand" holds.
func (o Operator) Compare(observed, operand decimal.Decimal) bool {
	c := observed.Cmp(operand)
	switch o {
	case GreaterOrEqual:
		return c >= 0
	case LessOrEqual:
		return c <= 0
	case Equal:
		return c == 0
	case Greater:
		return c > 0
	case Less:
		return c < 0
	}
	return false
}

// Operand is the right-hand side of an indicator: a decimal for numeric
// fields or an ordered set of labels for enum fields. The zero value is an
// empty label set.
//
// On the wire a numeric operand is a decimal string and an enum operand is a
// list of strings.
type Operand struct {
	numeric bool
	number  decimal.Decimal
	labels  []string
}

// NumberOperand wraps a numeric threshold.
func NumberOperand(d decimal.Decimal) Operand {
	return Operand{numeric: true, number: d}
}

// LabelsOperand wraps an enum selection. Blank and repeated labels are
// dropped; the first-seen order is kept.
func LabelsOperand(labels []string) Operand {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return Operand{labels: out}
}

func (o Operand) IsNumeric() bool         { return o.numeric }
func (o Operand) Number() decimal.Decimal { return o.number }

// Labels returns a copy of the enum selection.
func (o Operand) Labels() []string { return slices.Clone(o.labels) }

// Contains reports whether label is part of the enum selection.
func (o Operand) Contains(label string) bool {
	return slices.Contains(o.labels, label)
}

// IsEmpty reports whether an enum operand selects nothing.
func (o Operand) IsEmpty() bool { return !o.numeric && len(o.labels) == 0 }

func (o Operand) String() string {
	if o.numeric {
		return o.number.String()
	}
	return strings.Join(o.labels, "|")
}

// Equal reports whether two operands select the same values.
func (o Operand) Equal(other Operand) bool {
	if o.numeric != other.numeric {
		return false
	}
	if o.numeric {
		return o.number.Equal(other.number)
	}
	return slices.Equal(o.labels, other.labels)
}

func (o Operand) MarshalJSON() ([]byte, error) {
	if o.numeric {
		return json.Marshal(o.number.String())
	}
	if o.labels == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o.labels)
}

func (o *Operand) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '[':
		var labels []string
		if err := json.Unmarshal(b, &labels); err != nil {
			return fmt.Errorf("operand: %w", err)
		}
		*o = LabelsOperand(labels)
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("operand: %w", err)
		}
		d, err := ParseNumber(s)
		if err != nil {
			return fmt.Errorf("operand %q: %w", s, ErrNotANumber)
		}
		*o = NumberOperand(d)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("operand: must be a decimal string or a list of strings")
		}
		d, err := ParseNumber(n.String())
		if err != nil {
			return fmt.Errorf("operand %s: %w", n, ErrNotANumber)
		}
		*o = NumberOperand(d)
		return nil
	}
}
