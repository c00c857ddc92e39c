// Package schema is the registry of module definitions: field lists,
// required and numeric markers, searchable fields and the category
// field used for list narrowing. Handlers and services are generic over
// a Schema instead of duplicating per-module control flow.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/estate-admin-api/internal/models"
)

// Field describes a single field of a module.
type Field struct {
	Name     string
	Required bool
	Numeric  bool
	// Enum, when non-empty, restricts the accepted values.
	Enum []string
}

// Schema defines one module's dataset shape and list view configuration.
type Schema struct {
	Module string
	Fields []Field
	// Searchable names the fields included in free-text substring
	// matching. Entity-specific configuration, never hardcoded in the
	// list logic.
	Searchable []string
	// CategoryField, when set, is the field the category filter
	// compares against.
	CategoryField string
	// ListField is the field shown as the record's display name.
	ListField string
	// DefaultSort is the sort key used when none is requested.
	DefaultSort string
}

// FieldByName returns the field definition, if any.
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsNumeric reports whether a field is marked numeric.
func (s *Schema) IsNumeric(name string) bool {
	f, ok := s.FieldByName(name)
	return ok && f.Numeric
}

// ValidateDraft checks a draft against the schema: required fields must
// be present and non-blank, numeric fields must parse as numbers when
// present, enum fields must hold an allowed value. Unknown fields are
// rejected so typos do not silently persist. Returns a field→reason map,
// empty when the draft is valid.
func (s *Schema) ValidateDraft(draft models.Fields) map[string]string {
	errs := make(map[string]string)

	for name := range draft {
		if _, ok := s.FieldByName(name); !ok {
			errs[name] = "unknown field"
		}
	}

	for _, f := range s.Fields {
		raw, present := draft[f.Name]
		if !present || isBlank(raw) {
			if f.Required {
				errs[f.Name] = "required"
			}
			continue
		}
		if f.Numeric && !isNumber(raw) {
			errs[f.Name] = "must be a number"
			continue
		}
		if len(f.Enum) > 0 {
			sv := fmt.Sprintf("%v", raw)
			if !contains(f.Enum, sv) {
				errs[f.Name] = fmt.Sprintf("must be one of %s", strings.Join(f.Enum, ", "))
			}
		}
	}
	return errs
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch t := v.(type) {
	case float64, float32, int, int64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
