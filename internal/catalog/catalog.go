// Package catalog holds the registry of hardware categories and the fields an
// indicator may target, together with each field's value type.
//
// A Catalog is built once and never mutated. Everything it returns is a copy,
// so callers may hold on to results and share a Catalog across goroutines.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// CategoryID identifies a hardware category such as Memory or NIC.
type CategoryID string

const (
	CPU    CategoryID = "CPU"
	Memory CategoryID = "Memory"
	NIC    CategoryID = "NIC"
	HDD    CategoryID = "HDD"
	SSD    CategoryID = "SSD"
	NVMe   CategoryID = "NVMe"
	GPU    CategoryID = "GPU"
	RAID   CategoryID = "RAID"
)

// ValueType is the kind of value a field carries.
type ValueType string

const (
	Numeric ValueType = "numeric"
	Enum    ValueType = "enum"
)

// FieldDefinition describes one field of a category.
type FieldDefinition struct {
	Category      CategoryID `json:"category" yaml:"-"`
	Key           string     `json:"key" yaml:"key"`
	Label         string     `json:"label" yaml:"label"`
	ValueType     ValueType  `json:"value_type" yaml:"value_type"`
	AllowedValues []string   `json:"allowed_values,omitempty" yaml:"allowed_values,omitempty"`
}

// Allows reports whether label is one of the field's enum values.
func (f FieldDefinition) Allows(label string) bool {
	return slices.Contains(f.AllowedValues, label)
}

// CategoryDefinition groups the ordered fields of one category.
type CategoryDefinition struct {
	ID     CategoryID        `json:"id" yaml:"id"`
	Label  string            `json:"label" yaml:"label"`
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// Category is the id and display label of a category.
type Category struct {
	ID    CategoryID `json:"id"`
	Label string     `json:"label"`
}

// Catalog is an immutable, ordered registry of categories and their fields.
type Catalog struct {
	categories []CategoryDefinition
	index      map[CategoryID]int
	fields     map[CategoryID]map[string]int
}

// New validates defs and builds a Catalog from them. Field keys must be unique
// within a category and enum fields must list at least one allowed value.
func New(defs []CategoryDefinition) (*Catalog, error) {
	c := &Catalog{
		categories: make([]CategoryDefinition, 0, len(defs)),
		index:      make(map[CategoryID]int, len(defs)),
		fields:     make(map[CategoryID]map[string]int, len(defs)),
	}
	for _, def := range defs {
		id := CategoryID(strings.TrimSpace(string(def.ID)))
		if id == "" {
			return nil, fmt.Errorf("catalog: category with empty id")
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", id)
		}

		cd := CategoryDefinition{ID: id, Label: def.Label, Fields: make([]FieldDefinition, 0, len(def.Fields))}
		if cd.Label == "" {
			cd.Label = string(id)
		}
		keys := make(map[string]int, len(def.Fields))
		for _, f := range def.Fields {
			f.Category = id
			f.Key = strings.TrimSpace(f.Key)
			if f.Key == "" {
				return nil, fmt.Errorf("catalog: %s: field with empty key", id)
			}
			if _, dup := keys[f.Key]; dup {
				return nil, fmt.Errorf("catalog: %s: duplicate field %q", id, f.Key)
			}
			if f.Label == "" {
				f.Label = f.Key
			}
			switch f.ValueType {
			case Numeric:
				f.AllowedValues = nil
			case Enum:
				if len(f.AllowedValues) == 0 {
					return nil, fmt.Errorf("catalog: %s/%s: enum field has no allowed values", id, f.Key)
				}
				f.AllowedValues = slices.Clone(f.AllowedValues)
			default:
				return nil, fmt.Errorf("catalog: %s/%s: unknown value type %q", id, f.Key, f.ValueType)
			}
			keys[f.Key] = len(cd.Fields)
			cd.Fields = append(cd.Fields, f)
		}

		c.index[id] = len(c.categories)
		c.fields[id] = keys
		c.categories = append(c.categories, cd)
	}
	return c, nil
}

// Lookup returns the definition of fieldKey in category.
func (c *Catalog) Lookup(category CategoryID, fieldKey string) (FieldDefinition, bool) {
	keys, ok := c.fields[category]
	if !ok {
		return FieldDefinition{}, false
	}
	i, ok := keys[fieldKey]
	if !ok {
		return FieldDefinition{}, false
	}
	return cloneField(c.categories[c.index[category]].Fields[i]), true
}

// FieldsFor returns the fields of category in declaration order, or nil for an
// unknown category.
func (c *Catalog) FieldsFor(category CategoryID) []FieldDefinition {
	i, ok := c.index[category]
	if !ok {
		return nil
	}
	src := c.categories[i].Fields
	out := make([]FieldDefinition, 0, len(src))
	for _, f := range src {
		out = append(out, cloneField(f))
	}
	return out
}

// HasCategory reports whether category is registered.
func (c *Catalog) HasCategory(category CategoryID) bool {
	_, ok := c.index[category]
	return ok
}

// Categories returns every category in declaration order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.categories))
	for _, cd := range c.categories {
		out = append(out, Category{ID: cd.ID, Label: cd.Label})
	}
	return out
}

// Definitions returns a deep copy of the full table.
func (c *Catalog) Definitions() []CategoryDefinition {
	out := make([]CategoryDefinition, 0, len(c.categories))
	for _, cd := range c.categories {
		out = append(out, CategoryDefinition{ID: cd.ID, Label: cd.Label, Fields: c.FieldsFor(cd.ID)})
	}
	return out
}

func cloneField(f FieldDefinition) FieldDefinition {
	f.AllowedValues = slices.Clone(f.AllowedValues)
	return f
}
