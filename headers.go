package pivotgrid

import "strings"

// insertTotal places the TotalKey sentinel at the configured edge of an
// ordered key sequence. atStart corresponds to "left" for the row-totals
// column and "top" for the column-totals row.
func insertTotal(keys []string, atStart bool) []string {
	if atStart {
		return append([]string{TotalKey}, keys...)
	}
	return append(append([]string{}, keys...), TotalKey)
}

// buildRowHeaders emits one cell per group-column level per output row, with
// vertical run merging: a cell is absorbed into the run above it iff its own
// value and every shallower level's value is unchanged from the previous
// row. The grand-total row collapses to a single label spanning all levels.
func buildRowHeaders(rowKeys []string, groupCols []ColumnSpec, totals TotalsConfig) [][]HeaderCell {
	levels := len(groupCols)
	rows := make([][]HeaderCell, len(rowKeys))
	if levels == 0 {
		// No row dimensions: one unlabeled row per key.
		for i := range rows {
			rows[i] = []HeaderCell{}
		}
		return rows
	}

	comps := make([][]string, len(rowKeys))
	for i, key := range rowKeys {
		if key == TotalKey {
			cells := make([]HeaderCell, levels)
			cells[0] = HeaderCell{Label: totals.totalLabel(), ColSpan: levels, RowSpan: 1, Visible: true}
			for j := 1; j < levels; j++ {
				cells[j] = HeaderCell{ColSpan: 1, RowSpan: 1, Visible: false}
			}
			rows[i] = cells
			continue
		}
		comps[i] = splitKey(key)
		cells := make([]HeaderCell, levels)
		for j := 0; j < levels; j++ {
			label := ""
			if j < len(comps[i]) {
				label = displayLabel(comps[i][j])
			}
			cells[j] = HeaderCell{Label: label, ColSpan: 1, RowSpan: 1, Visible: true}
		}
		rows[i] = cells
	}

	// Vertical merge scan, top to bottom. runHead tracks the first row of
	// the current run at each level; the span accumulates there.
	runHead := make([]int, levels)
	for j := range runHead {
		runHead[j] = -1
	}
	for i, key := range rowKeys {
		if key == TotalKey {
			for j := range runHead {
				runHead[j] = -1
			}
			continue
		}
		for j := 0; j < levels; j++ {
			if i > 0 && runHead[j] >= 0 && prefixEqual(comps[i], comps[i-1], j) {
				rows[i][j].Visible = false
				rows[runHead[j]][j].RowSpan++
			} else {
				runHead[j] = i
			}
		}
	}
	return rows
}

// prefixEqual reports whether two component slices agree on every level up
// to and including j. Missing components compare as "".
func prefixEqual(a, b []string, j int) bool {
	for l := 0; l <= j; l++ {
		if componentAt(a, l) != componentAt(b, l) {
			return false
		}
	}
	return true
}

// buildColumnHeaders emits one header row per pivot level plus a trailing
// row of value-column labels, walking the (ColumnKey x value column)
// expansion in column-key-major order. Consecutive slots merge iff their
// keys agree at this and every shallower level; a parent label therefore
// spans len(valueCols) times the number of its distinct leaves. The
// grand-total key is its own label at level 0, blank below, and never
// merges with non-total labels.
func buildColumnHeaders(colKeys []string, pivotCols, valueCols []ColumnSpec, totals TotalsConfig) [][]HeaderCell {
	levels := len(pivotCols)
	if levels == 0 && len(valueCols) == 0 {
		return [][]HeaderCell{}
	}

	type slot struct {
		key string
		vc  int
	}
	slots := make([]slot, 0, len(colKeys)*len(valueCols))
	for _, key := range colKeys {
		for vi := range valueCols {
			slots = append(slots, slot{key: key, vc: vi})
		}
	}

	out := make([][]HeaderCell, 0, levels+1)
	for lvl := 0; lvl < levels; lvl++ {
		var row []HeaderCell
		for si, sl := range slots {
			if si > 0 && levelPrefix(sl.key, lvl) == levelPrefix(slots[si-1].key, lvl) {
				row[len(row)-1].ColSpan++
				continue
			}
			label := ""
			if sl.key == TotalKey {
				if lvl == 0 {
					label = totals.totalLabel()
				}
			} else if comps := splitKey(sl.key); lvl < len(comps) {
				label = displayLabel(comps[lvl])
			}
			row = append(row, HeaderCell{Label: label, ColSpan: 1, RowSpan: 1, Visible: true})
		}
		out = append(out, row)
	}

	if len(valueCols) > 0 {
		row := make([]HeaderCell, 0, len(slots))
		for _, sl := range slots {
			row = append(row, HeaderCell{Label: valueCols[sl.vc].displayName(), ColSpan: 1, RowSpan: 1, Visible: true})
		}
		out = append(out, row)
	}
	return out
}

// levelPrefix is the merge identity of a column key at a header level. The
// total sentinel is its own identity, so it can only merge with itself.
func levelPrefix(key string, lvl int) string {
	if key == TotalKey {
		return TotalKey
	}
	comps := splitKey(key)
	if lvl >= len(comps) {
		lvl = len(comps) - 1
	}
	return strings.Join(comps[:lvl+1], keyDelim)
}
