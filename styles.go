package pivotgrid

// applyStyles runs every configured rule set over the assembled result:
// group-column rules against row header labels, pivot-column rules against
// column header labels, value-column rules against the data cells. Grand
// total and subtotal labels are excluded from header-label matching so the
// total literal cannot accidentally satisfy a value rule, but total data
// cells take part in value-rule matching and populations like any other
// cell.
func applyStyles(res *PivotResult, in PivotInput) {
	applyGroupRules(res, in)
	applyPivotRules(res, in)
	applyValueRules(res, in)
}

func applyGroupRules(res *PivotResult, in PivotInput) {
	levels := len(in.GroupColumns)
	for j, gc := range in.GroupColumns {
		if len(gc.Rules) == 0 {
			continue
		}
		var pop []float64
		for _, key := range res.RowKeys {
			if key == TotalKey || isSubtotalKey(key) {
				continue
			}
			if f, ok := parseNumber(componentAt(splitKey(key), j)); ok {
				pop = append(pop, f)
			}
		}
		for i, key := range res.RowKeys {
			if key == TotalKey || isSubtotalKey(key) {
				continue
			}
			st, ok := evalRules(gc.Rules, componentAt(splitKey(key), j), pop)
			if !ok {
				continue
			}
			// A match propagates to every deeper level of the same row;
			// rows absorbed by this row's vertical span match on their own
			// identical label and pick the style up the same way.
			for l := j; l < levels; l++ {
				mergeCellStyle(&res.RowHeaders[i][l], st)
			}
		}
	}
}

func applyPivotRules(res *PivotResult, in PivotInput) {
	nv := len(in.ValueColumns)
	if nv == 0 || len(res.HeaderRows) == 0 {
		return
	}
	slotKey := func(slot int) string { return res.ColumnKeys[slot/nv] }

	for lvl, pc := range in.PivotColumns {
		if len(pc.Rules) == 0 || lvl >= len(res.HeaderRows) {
			continue
		}
		var pop []float64
		for _, key := range res.ColumnKeys {
			if key == TotalKey || isSubtotalKey(key) {
				continue
			}
			if f, ok := parseNumber(componentAt(splitKey(key), lvl)); ok {
				pop = append(pop, f)
			}
		}

		off := 0
		for ci := range res.HeaderRows[lvl] {
			cell := &res.HeaderRows[lvl][ci]
			start, end := off, off+cell.ColSpan
			off = end

			key := slotKey(start)
			if key == TotalKey || isSubtotalKey(key) {
				continue
			}
			st, ok := evalRules(pc.Rules, componentAt(splitKey(key), lvl), pop)
			if !ok {
				continue
			}
			mergeCellStyle(cell, st)
			// Propagate to descendant header cells inside this span.
			for rr := lvl + 1; rr < len(res.HeaderRows); rr++ {
				dOff := 0
				for di := range res.HeaderRows[rr] {
					d := &res.HeaderRows[rr][di]
					if dOff >= start && dOff+d.ColSpan <= end {
						mergeCellStyle(d, st)
					}
					dOff += d.ColSpan
				}
			}
		}
	}
}

func applyValueRules(res *PivotResult, in PivotInput) {
	nv := len(in.ValueColumns)
	for vi, vc := range in.ValueColumns {
		if len(vc.Rules) == 0 {
			continue
		}
		for ci := range res.ColumnKeys {
			slot := ci*nv + vi

			// Full column population: all rows in this slot, totals
			// included.
			var pop []float64
			for ri := range res.Matrix {
				if f, ok := parseNumber(res.Matrix[ri][slot].Value); ok {
					pop = append(pop, f)
				}
			}
			for ri := range res.Matrix {
				cell := &res.Matrix[ri][slot]
				if st, ok := evalRules(vc.Rules, cell.Value, pop); ok {
					if cell.Style == nil {
						cell.Style = &Style{}
					}
					merged := cell.Style.Merge(st)
					cell.Style = &merged
				}
			}
		}
	}
}

func mergeCellStyle(cell *HeaderCell, st Style) {
	if cell.Style == nil {
		cell.Style = &Style{}
	}
	merged := cell.Style.Merge(st)
	cell.Style = &merged
}
