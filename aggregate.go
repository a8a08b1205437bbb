package pivotgrid

import (
	"sort"
	"strconv"
	"strings"
)

// aggregationStore is a sparse map from (RowKey, ColumnKey) to per-value-
// column scalars. Grand totals live under the TotalKey sentinel on either
// axis, including the TotalKey x TotalKey cell.
type aggregationStore struct {
	cells map[string]map[string]map[string]interface{}
}

func newAggregationStore() *aggregationStore {
	return &aggregationStore{cells: make(map[string]map[string]map[string]interface{})}
}

func (s *aggregationStore) cell(rKey, cKey string) map[string]interface{} {
	byCol := s.cells[rKey]
	if byCol == nil {
		byCol = make(map[string]map[string]interface{})
		s.cells[rKey] = byCol
	}
	c := byCol[cKey]
	if c == nil {
		c = make(map[string]interface{})
		byCol[cKey] = c
	}
	return c
}

func (s *aggregationStore) put(rKey, cKey, field string, v interface{}) {
	s.cell(rKey, cKey)[field] = v
}

// add accumulates a numeric contribution, used only for injected subtotals.
func (s *aggregationStore) add(rKey, cKey, field string, v float64) {
	c := s.cell(rKey, cKey)
	prev, _ := c[field].(float64)
	c[field] = prev + v
}

// value looks a scalar up with the same tolerance as field resolution:
// identifier, mapped actual key, normalized identifier, then a
// case-insensitive name match.
func (s *aggregationStore) value(rKey, cKey string, col ColumnSpec, fm fieldMap) (interface{}, bool) {
	byCol := s.cells[rKey]
	if byCol == nil {
		return nil, false
	}
	c := byCol[cKey]
	if c == nil {
		return nil, false
	}
	if v, ok := c[col.Field]; ok {
		return v, true
	}
	if ak, ok := fm[col.Field]; ok {
		if v, ok := c[ak]; ok {
			return v, true
		}
	}
	norm := normalizeField(col.Field)
	if v, ok := c[norm]; ok {
		return v, true
	}
	for _, k := range sortedKeys(c) {
		if strings.EqualFold(k, col.Field) || (col.Label != "" && strings.EqualFold(k, col.Label)) {
			return c[k], true
		}
	}
	return nil, false
}

// populate fills the store from the main dataset in a single pass and
// returns the sorted unique row and column keys. The last row observed for a
// key pair wins: upstream data is already aggregated per dimension. Subtotal
// cells are the one place this pass sums values itself.
func (s *aggregationStore) populate(in PivotInput, fm fieldMap) (rowKeys, colKeys []string) {
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)

	for _, row := range in.Rows {
		rKey := buildKey(row, in.GroupColumns, fm)
		cKey := buildKey(row, in.PivotColumns, fm)

		if !rowSeen[rKey] {
			rowSeen[rKey] = true
			rowKeys = append(rowKeys, rKey)
		}
		if !colSeen[cKey] {
			colSeen[cKey] = true
			colKeys = append(colKeys, cKey)
		}

		for _, vc := range in.ValueColumns {
			v, ok := rawValue(row, vc, fm)
			if !ok || v == nil {
				continue
			}
			s.put(rKey, cKey, vc.Field, v)

			if !in.Totals.ShowSubtotals {
				continue
			}
			num := coerceNumber(v)

			// Row subtotals: one injected key per strict key prefix. The
			// subtotal component sorts after real components, keeping the
			// row right below its group.
			if len(in.GroupColumns) > 1 {
				comps := splitKey(rKey)
				for l := 1; l < len(comps); l++ {
					sub := strings.Join(comps[:l], keyDelim) + keyDelim + subtotalPart
					if !rowSeen[sub] {
						rowSeen[sub] = true
						rowKeys = append(rowKeys, sub)
					}
					s.add(sub, cKey, vc.Field, num)
				}
			}
			if len(in.PivotColumns) > 1 {
				comps := splitKey(cKey)
				for l := 1; l < len(comps); l++ {
					sub := strings.Join(comps[:l], keyDelim) + keyDelim + subtotalPart
					if !colSeen[sub] {
						colSeen[sub] = true
						colKeys = append(colKeys, sub)
					}
					s.add(rKey, sub, vc.Field, num)
				}
			}
		}
	}

	// Deliberate string sort, even for numeric-looking dimensions.
	sort.Strings(rowKeys)
	sort.Strings(colKeys)
	return rowKeys, colKeys
}

// loadRowTotals places the precomputed per-row grand totals under
// (RowKey, TotalKey). Total placement is a lookup, not a recompute: the
// upstream totals are assumed correct for their dimension.
func (s *aggregationStore) loadRowTotals(in PivotInput) {
	if len(in.RowTotals) == 0 {
		return
	}
	fm := buildFieldMap(in.RowTotals[0], in.GroupColumns, in.ValueColumns)
	for _, row := range in.RowTotals {
		rKey := buildKey(row, in.GroupColumns, fm)
		for _, vc := range in.ValueColumns {
			if v, ok := rawValue(row, vc, fm); ok && v != nil {
				s.put(rKey, TotalKey, vc.Field, coerceNumber(v))
			}
		}
	}
}

// loadColTotals is the column-axis mirror of loadRowTotals.
func (s *aggregationStore) loadColTotals(in PivotInput) {
	if len(in.ColTotals) == 0 {
		return
	}
	fm := buildFieldMap(in.ColTotals[0], in.PivotColumns, in.ValueColumns)
	for _, row := range in.ColTotals {
		cKey := buildKey(row, in.PivotColumns, fm)
		for _, vc := range in.ValueColumns {
			if v, ok := rawValue(row, vc, fm); ok && v != nil {
				s.put(TotalKey, cKey, vc.Field, coerceNumber(v))
			}
		}
	}
}

// loadGrandTotal computes the TotalKey x TotalKey cell by summing the
// column-total dataset. Only done when both auxiliary datasets are present.
func (s *aggregationStore) loadGrandTotal(in PivotInput) {
	if len(in.RowTotals) == 0 || len(in.ColTotals) == 0 {
		return
	}
	fm := buildFieldMap(in.ColTotals[0], in.PivotColumns, in.ValueColumns)
	for _, vc := range in.ValueColumns {
		var sum float64
		for _, row := range in.ColTotals {
			if v, ok := rawValue(row, vc, fm); ok && v != nil {
				sum += coerceNumber(v)
			}
		}
		s.put(TotalKey, TotalKey, vc.Field, sum)
	}
}

// coerceNumber strips every character outside [0-9.-] and parses the rest,
// defaulting to 0. Good enough for currency strings like "$1,234.50".
func coerceNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}

	var b strings.Builder
	for _, r := range keyComponent(v) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
