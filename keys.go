package pivotgrid

import (
	"fmt"
	"strings"
)

// keyComponent stringifies one dimension value for use inside a composite
// key. Nil becomes the empty string, which renders as "(Blank)".
func keyComponent(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// buildKey computes the composite key of one row over the given dimension
// columns. Zero dimensions yield the single empty key, meaning one flat
// group.
func buildKey(row map[string]interface{}, dims []ColumnSpec, fm fieldMap) string {
	if len(dims) == 0 {
		return ""
	}
	parts := make([]string, len(dims))
	for i, col := range dims {
		v, _ := rawValue(row, col, fm)
		parts[i] = keyComponent(v)
	}
	return strings.Join(parts, keyDelim)
}

// splitKey breaks a composite key back into its per-level components.
func splitKey(key string) []string {
	return strings.Split(key, keyDelim)
}

// componentAt returns the component of key at the given level, or "" when
// the key is shorter than the level (injected subtotal keys are).
func componentAt(comps []string, level int) string {
	if level < len(comps) {
		return comps[level]
	}
	return ""
}

// displayLabel renders one key component for a header cell.
func displayLabel(comp string) string {
	switch comp {
	case "":
		return "(Blank)"
	case subtotalPart:
		return "Total"
	}
	return comp
}

// isSubtotalKey reports whether key was injected by subtotal accumulation.
func isSubtotalKey(key string) bool {
	return strings.HasSuffix(key, keyDelim+subtotalPart)
}
