package evaluator

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tphummel/hwreq/internal/catalog"
)

// Observation is one measured hardware value in its text form. Strings
// decode to their contents and every other JSON value to its compact JSON
// text, so a value of the wrong kind fails only the indicators that read it.
type Observation string

func (o *Observation) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*o = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = Observation(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*o = Observation(buf.String())
	}
	return nil
}

// Profile maps category and field key to what was measured on a machine.
type Profile map[catalog.CategoryID]map[string]Observation

// Set records an observation, allocating the category map when needed.
func (p Profile) Set(category catalog.CategoryID, fieldKey string, value Observation) {
	fields, ok := p[category]
	if !ok {
		fields = make(map[string]Observation)
		p[category] = fields
	}
	fields[fieldKey] = value
}

// Lookup returns the observation for a field. Blank observations count as
// missing.
func (p Profile) Lookup(category catalog.CategoryID, fieldKey string) (Observation, bool) {
	v, ok := p[category][fieldKey]
	if !ok || strings.TrimSpace(string(v)) == "" {
		return "", false
	}
	return v, true
}
