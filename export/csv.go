package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gnemet/pivotgrid"
)

// CSVOptions tunes flat CSV rendering. Zero value is usable.
type CSVOptions struct {
	// ChunkSize is the number of records written between flushes and
	// context checks. Defaults to 500.
	ChunkSize int
	Comma     rune
}

// WriteCSV renders a pivot result as flat CSV. Merged header cells emit
// their label once followed by blanks, absorbed row-header cells emit
// blanks, nil values emit empty fields. Writing is chunked and checks ctx
// between chunks so a large export never blocks its host for unbounded
// time.
func WriteCSV(ctx context.Context, w io.Writer, res *pivotgrid.PivotResult, opts CSVOptions) error {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = 500
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}

	written := 0
	write := func(record []string) error {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv write failed: %w", err)
		}
		written++
		if written%chunk == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	}

	rhWidth := len(res.GroupLabels)

	for hr, cells := range res.HeaderRows {
		record := make([]string, 0, rhWidth)
		for j := 0; j < rhWidth; j++ {
			if hr == len(res.HeaderRows)-1 {
				record = append(record, res.GroupLabels[j])
			} else {
				record = append(record, "")
			}
		}
		for _, cell := range cells {
			record = append(record, cell.Label)
			for s := 1; s < cell.ColSpan; s++ {
				record = append(record, "")
			}
		}
		if err := write(record); err != nil {
			return err
		}
	}
	if len(res.HeaderRows) == 0 && rhWidth > 0 && len(res.RowKeys) > 0 {
		if err := write(append([]string{}, res.GroupLabels...)); err != nil {
			return err
		}
	}

	for i, row := range res.Matrix {
		// Row header cells are dense per level; absorbed cells emit blanks.
		record := make([]string, rhWidth, rhWidth+len(row))
		for j, cell := range res.RowHeaders[i] {
			if cell.Visible {
				record[j] = cell.Label
			}
		}
		for _, cell := range row {
			record = append(record, formatValue(cell.Value))
		}
		if err := write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatValue renders one matrix scalar. Nil renders empty, never "0" or
// "null".
func formatValue(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 64)
	case string:
		return n
	}
	return fmt.Sprintf("%v", v)
}
