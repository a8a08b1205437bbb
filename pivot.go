package pivotgrid

import (
	"fmt"
	"strings"
)

// Build transforms one flat dataset snapshot into a pivoted result: row and
// column keys, merged headers, the dense data matrix and per-cell styles.
// It is a pure synchronous computation; calling it twice on the same input
// yields structurally identical output.
//
// Build does not fail for any shape of valid data. Empty datasets and
// degenerate dimension configurations produce smaller but well-formed
// results; only caller bugs (a spec without a field) return an error.
func Build(in PivotInput) (*PivotResult, error) {
	for _, specs := range [][]ColumnSpec{in.GroupColumns, in.PivotColumns, in.ValueColumns} {
		for _, c := range specs {
			if strings.TrimSpace(c.Field) == "" {
				return nil, fmt.Errorf("column spec with empty field")
			}
		}
	}

	res := &PivotResult{
		GroupLabels:  make([]string, len(in.GroupColumns)),
		HeaderRows:   [][]HeaderCell{},
		RowHeaders:   [][]HeaderCell{},
		Matrix:       [][]Cell{},
		ValueColumns: in.ValueColumns,
	}
	for i, gc := range in.GroupColumns {
		res.GroupLabels[i] = gc.displayName()
	}
	if len(in.Rows) == 0 {
		res.RowKeys = []string{}
		res.ColumnKeys = []string{}
		return res, nil
	}

	fm := buildFieldMap(in.Rows[0], in.GroupColumns, in.PivotColumns, in.ValueColumns)
	res.Unmapped = unmappedFields(fm, in.GroupColumns, in.PivotColumns, in.ValueColumns)

	store := newAggregationStore()
	rowKeys, colKeys := store.populate(in, fm)
	store.loadRowTotals(in)
	store.loadColTotals(in)
	store.loadGrandTotal(in)

	if in.Totals.ShowColumnTotals {
		rowKeys = insertTotal(rowKeys, strings.EqualFold(in.Totals.ColumnTotalsPosition, "top"))
	}
	if in.Totals.ShowRowTotals {
		colKeys = insertTotal(colKeys, strings.EqualFold(in.Totals.RowTotalsPosition, "left"))
	}
	res.RowKeys = rowKeys
	res.ColumnKeys = colKeys

	res.RowHeaders = buildRowHeaders(rowKeys, in.GroupColumns, in.Totals)
	res.HeaderRows = buildColumnHeaders(colKeys, in.PivotColumns, in.ValueColumns, in.Totals)

	width := len(colKeys) * len(in.ValueColumns)
	res.Matrix = make([][]Cell, len(rowKeys))
	for ri, rKey := range rowKeys {
		row := make([]Cell, 0, width)
		for _, cKey := range colKeys {
			for _, vc := range in.ValueColumns {
				if v, ok := store.value(rKey, cKey, vc, fm); ok {
					row = append(row, Cell{Value: v})
				} else {
					row = append(row, Cell{})
				}
			}
		}
		res.Matrix[ri] = row
	}

	applyStyles(res, in)
	return res, nil
}

func unmappedFields(fm fieldMap, specLists ...[]ColumnSpec) []string {
	var missing []string
	for _, specs := range specLists {
		for _, c := range specs {
			if _, ok := fm[c.Field]; !ok {
				missing = append(missing, c.Field)
			}
		}
	}
	return missing
}
