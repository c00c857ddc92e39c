// Package listview implements the shared table behaviour every module
// page uses: free-text search over configured fields, category
// narrowing, and a stable single-key sort. Filtering never reorders its
// input; sorting is a separate step applied afterwards.
package listview

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/schema"
)

// Filter returns the records matching the query, in input order. A
// record matches when the category (if requested) equals the schema's
// category field AND any searchable field contains the query as a
// case-insensitive substring. An empty query matches everything.
func Filter(s *schema.Schema, records []models.Record, query, category string) []models.Record {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if category != "" && s.CategoryField != "" {
			if stringValue(r.Fields[s.CategoryField]) != category {
				continue
			}
		}
		if needle != "" && !matches(s, r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(s *schema.Schema, r models.Record, needle string) bool {
	for _, name := range s.Searchable {
		v := stringValue(r.Fields[name])
		if v != "" && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Sort orders records by a single field, ascending unless order is
// "desc". Fields marked numeric in the schema compare as numbers,
// everything else compares case-insensitively as text. The sort is
// stable, so records equal under the key keep their relative order.
func Sort(s *schema.Schema, records []models.Record, field, order string) []models.Record {
	if field == "" {
		field = s.DefaultSort
	}
	if field == "" {
		return records
	}
	desc := strings.EqualFold(order, "desc")
	numeric := s.IsNumeric(field)

	out := make([]models.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		less := lessByField(out[i], out[j], field, numeric)
		if desc {
			return lessByField(out[j], out[i], field, numeric)
		}
		return less
	})
	return out
}

func lessByField(a, b models.Record, field string, numeric bool) bool {
	av := stringValue(a.Fields[field])
	bv := stringValue(b.Fields[field])
	if numeric {
		af, aok := parseNumber(av)
		bf, bok := parseNumber(bv)
		if aok && bok {
			return af < bf
		}
		// Non-parsing values sort after numbers.
		if aok != bok {
			return aok
		}
	}
	return strings.ToLower(av) < strings.ToLower(bv)
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// Flatten renders a record's fields as strings keyed by field name,
// suitable for CSV and PDF rows. Nested maps (the land documents status
// map) flatten to dotted keys; string slices join with ";".
func Flatten(fields models.Fields) map[string]string {
	out := make(map[string]string, len(fields))
	flattenInto(out, "", fields)
	return out
}

func flattenInto(out map[string]string, prefix string, fields map[string]any) {
	for k, v := range fields {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flattenInto(out, key, t)
		case []any:
			parts := make([]string, 0, len(t))
			for _, e := range t {
				parts = append(parts, stringValue(e))
			}
			out[key] = strings.Join(parts, ";")
		default:
			out[key] = stringValue(v)
		}
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []string:
		return strings.Join(t, ";")
	default:
		return fmt.Sprintf("%v", t)
	}
}
