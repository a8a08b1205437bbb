package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gnemet/pivotgrid"
)

// XLSXOptions tunes workbook rendering. Zero value is usable.
type XLSXOptions struct {
	SheetName string // defaults to "Pivot"
}

// headerStyle is the advisory default for header cells; rule styles merge
// on top of it.
var headerStyle = pivotgrid.Style{Bold: true}

// WriteXLSX renders a pivot result as a styled workbook: merged multi-row
// headers, row-spanned row headers, per-cell rule styles and the value
// columns' display formats. Nil cell values stay empty, never "0".
func WriteXLSX(w io.Writer, res *pivotgrid.PivotResult, opts XLSXOptions) error {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Pivot"
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	styles := newStyleCache(f)
	rhWidth := len(res.GroupLabels)
	topRows := len(res.HeaderRows)
	if topRows == 0 && rhWidth > 0 {
		// Degenerate shape: only the group-column label row renders.
		topRows = 1
	}

	// Column header block, one sheet row per header row.
	for hr, cells := range res.HeaderRows {
		col := rhWidth + 1
		for _, cell := range cells {
			if err := setHeaderCell(f, styles, sheet, col, hr+1, cell, cell.ColSpan, 1); err != nil {
				return err
			}
			col += cell.ColSpan
		}
	}

	// Corner block: group-column labels on the last header row.
	for j, label := range res.GroupLabels {
		cell := pivotgrid.HeaderCell{Label: label, ColSpan: 1, RowSpan: 1, Visible: true}
		if err := setHeaderCell(f, styles, sheet, j+1, topRows, cell, 1, 1); err != nil {
			return err
		}
	}

	dataStart := topRows + 1
	for i, cells := range res.RowHeaders {
		for j, cell := range cells {
			if !cell.Visible {
				continue
			}
			if err := setHeaderCell(f, styles, sheet, j+1, dataStart+i, cell, cell.ColSpan, cell.RowSpan); err != nil {
				return err
			}
		}
	}

	nv := len(res.ValueColumns)
	for i, row := range res.Matrix {
		for s, cell := range row {
			name, err := excelize.CoordinatesToCellName(rhWidth+1+s, dataStart+i)
			if err != nil {
				return err
			}
			if cell.Value != nil {
				if err := f.SetCellValue(sheet, name, cell.Value); err != nil {
					return err
				}
			}
			numFmt := ""
			if nv > 0 {
				numFmt = res.ValueColumns[s%nv].Format
			}
			if cell.Style != nil || numFmt != "" {
				st := pivotgrid.Style{}
				if cell.Style != nil {
					st = *cell.Style
				}
				id, err := styles.id(st, numFmt)
				if err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, name, name, id); err != nil {
					return err
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setHeaderCell(f *excelize.File, styles *styleCache, sheet string, col, row int, cell pivotgrid.HeaderCell, colSpan, rowSpan int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if cell.Label != "" {
		if err := f.SetCellValue(sheet, name, cell.Label); err != nil {
			return err
		}
	}
	st := headerStyle
	if cell.Style != nil {
		st = st.Merge(*cell.Style)
	}
	id, err := styles.id(st, "")
	if err != nil {
		return err
	}

	endCol, endRow := col+colSpan-1, row+rowSpan-1
	end := name
	if endCol != col || endRow != row {
		if end, err = excelize.CoordinatesToCellName(endCol, endRow); err != nil {
			return err
		}
		if err := f.MergeCell(sheet, name, end); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, name, end, id)
}

// styleCache deduplicates excelize style registrations; styles repeat a lot
// across a pivot.
type styleCache struct {
	f   *excelize.File
	ids map[styleKey]int
}

type styleKey struct {
	style  pivotgrid.Style
	numFmt string
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[styleKey]int)}
}

func (c *styleCache) id(st pivotgrid.Style, numFmt string) (int, error) {
	key := styleKey{style: st, numFmt: numFmt}
	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	xs := &excelize.Style{}
	if st.Bold || st.Italic || st.FontColor != "" {
		xs.Font = &excelize.Font{
			Bold:   st.Bold,
			Italic: st.Italic,
			Color:  strings.TrimPrefix(st.FontColor, "#"),
		}
	}
	if st.Background != "" {
		xs.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{strings.TrimPrefix(st.Background, "#")},
		}
	}
	if st.Align != "" {
		xs.Alignment = &excelize.Alignment{Horizontal: st.Align, Vertical: "center"}
	}
	if numFmt != "" {
		xs.CustomNumFmt = &numFmt
	}

	id, err := c.f.NewStyle(xs)
	if err != nil {
		return 0, fmt.Errorf("failed to register style: %w", err)
	}
	c.ids[key] = id
	return id, nil
}
