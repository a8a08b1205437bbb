package pivotgrid

import (
	"sort"
	"strings"
)

// normalizeField strips bracket characters and surrounding whitespace.
// Upstream sources expose fields like "  [Sales Amount]  " for a configured
// identifier "Sales Amount".
func normalizeField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	return strings.TrimSpace(s)
}

// resolveField finds the value for a configured column in one raw row.
// Resolution order, first match wins: exact field, exact display label,
// bracket/whitespace-normalized match, case-insensitive match of field,
// normalized field or label against any row key. Returns ok=false when
// nothing matches; callers must treat that as blank, never as zero.
func resolveField(row map[string]interface{}, field, label string) (interface{}, bool) {
	if v, ok := row[field]; ok {
		return v, true
	}
	if label != "" {
		if v, ok := row[label]; ok {
			return v, true
		}
	}

	norm := normalizeField(field)
	keys := sortedKeys(row)
	for _, k := range keys {
		if normalizeField(k) == norm {
			return row[k], true
		}
	}
	for _, k := range keys {
		if strings.EqualFold(k, field) || strings.EqualFold(normalizeField(k), norm) {
			return row[k], true
		}
		if label != "" && strings.EqualFold(k, label) {
			return row[k], true
		}
	}
	return nil, false
}

// fieldMap caches configured-field -> actual-row-key, built once per dataset
// from the first row. Per-row resolution remains as a fallback for rows that
// are missing the cached key.
type fieldMap map[string]string

// buildFieldMap scans the first row's keys with the same tiers as
// resolveField plus a final substring-containment fallback in either
// direction. Fields with no entry are reported as unmapped diagnostics.
func buildFieldMap(first map[string]interface{}, specLists ...[]ColumnSpec) fieldMap {
	fm := make(fieldMap)
	keys := sortedKeys(first)

	for _, specs := range specLists {
		for _, col := range specs {
			if _, done := fm[col.Field]; done {
				continue
			}
			if k, ok := matchKey(keys, col.Field, col.Label); ok {
				fm[col.Field] = k
			}
		}
	}
	return fm
}

func matchKey(keys []string, field, label string) (string, bool) {
	for _, k := range keys {
		if k == field {
			return k, true
		}
	}
	if label != "" {
		for _, k := range keys {
			if k == label {
				return k, true
			}
		}
	}
	norm := normalizeField(field)
	for _, k := range keys {
		if normalizeField(k) == norm {
			return k, true
		}
	}
	for _, k := range keys {
		if strings.EqualFold(k, field) || strings.EqualFold(normalizeField(k), norm) {
			return k, true
		}
		if label != "" && strings.EqualFold(k, label) {
			return k, true
		}
	}
	// Substring containment, both directions
	lf := strings.ToLower(norm)
	for _, k := range keys {
		lk := strings.ToLower(strings.TrimSpace(k))
		if lk == "" || lf == "" {
			continue
		}
		if strings.Contains(lk, lf) || strings.Contains(lf, lk) {
			return k, true
		}
	}
	return "", false
}

// rawValue prefers the cached mapping and falls back to per-row resolution
// when the cached key is absent on this particular row.
func rawValue(row map[string]interface{}, col ColumnSpec, fm fieldMap) (interface{}, bool) {
	if ak, ok := fm[col.Field]; ok {
		if v, ok := row[ak]; ok {
			return v, true
		}
	}
	return resolveField(row, col.Field, col.Label)
}

// sortedKeys makes key scans deterministic so repeated builds on the same
// input produce identical output.
func sortedKeys(row map[string]interface{}) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
