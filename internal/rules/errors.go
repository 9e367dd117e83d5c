package rules

import (
	"errors"
	"fmt"

	"github.com/tphummel/hwreq/internal/catalog"
)

// Code classifies a validation failure.
type Code string

const (
	CodeUnknownField       Code = "unknown_field"
	CodeEmptyValue         Code = "empty_value"
	CodeNotANumber         Code = "not_a_number"
	CodeEmptySelection     Code = "empty_selection"
	CodeInvalidEnumValue   Code = "invalid_enum_value"
	CodeInvalidOperator    Code = "invalid_operator"
	CodeDuplicateField     Code = "duplicate_field"
	CodeEmptyRule          Code = "empty_rule"
	CodeInvalidArchetype   Code = "invalid_archetype"
	CodeNoRules            Code = "no_rules"
	CodeNoCustomer         Code = "no_customer"
	CodeMissingMeasurement Code = "missing_measurement"
	CodeTypeMismatch       Code = "type_mismatch"
)

var messages = map[Code]string{
	CodeUnknownField:       "unknown field",
	CodeEmptyValue:         "value is required",
	CodeNotANumber:         "value is not a number",
	CodeEmptySelection:     "at least one value must be selected",
	CodeInvalidEnumValue:   "value is not allowed for field",
	CodeInvalidOperator:    "operator is not allowed for field",
	CodeDuplicateField:     "rule already has a condition for field",
	CodeEmptyRule:          "rule has no indicators",
	CodeInvalidArchetype:   "server archetype must be GPU or CPU",
	CodeNoRules:            "requirement set has no rules",
	CodeNoCustomer:         "customer is required",
	CodeMissingMeasurement: "no measurement for field",
	CodeTypeMismatch:       "measurement is not comparable",
}

// ValidationError reports why an indicator, rule or requirement set was
// rejected. Two ValidationErrors match under errors.Is when their codes are
// equal, so callers test against the Err* sentinels.
type ValidationError struct {
	Code     Code
	Category catalog.CategoryID
	FieldKey string
	Detail   string
}

func (e *ValidationError) Error() string {
	msg := messages[e.Code]
	if msg == "" {
		msg = string(e.Code)
	}
	if e.FieldKey != "" {
		msg = fmt.Sprintf("%s %s/%s", msg, e.Category, e.FieldKey)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrUnknownField       = &ValidationError{Code: CodeUnknownField}
	ErrEmptyValue         = &ValidationError{Code: CodeEmptyValue}
	ErrNotANumber         = &ValidationError{Code: CodeNotANumber}
	ErrEmptySelection     = &ValidationError{Code: CodeEmptySelection}
	ErrInvalidEnumValue   = &ValidationError{Code: CodeInvalidEnumValue}
	ErrInvalidOperator    = &ValidationError{Code: CodeInvalidOperator}
	ErrDuplicateField     = &ValidationError{Code: CodeDuplicateField}
	ErrEmptyRule          = &ValidationError{Code: CodeEmptyRule}
	ErrInvalidArchetype   = &ValidationError{Code: CodeInvalidArchetype}
	ErrNoRules            = &ValidationError{Code: CodeNoRules}
	ErrNoCustomer         = &ValidationError{Code: CodeNoCustomer}
	ErrMissingMeasurement = &ValidationError{Code: CodeMissingMeasurement}
	ErrTypeMismatch       = &ValidationError{Code: CodeTypeMismatch}
)

// CodeOf extracts the validation code from err, if any.
func CodeOf(err error) (Code, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code, true
	}
	return "", false
}

func fieldError(code Code, ref FieldRef, detail string) *ValidationError {
	return &ValidationError{Code: code, Category: ref.Category, FieldKey: ref.FieldKey, Detail: detail}
}
