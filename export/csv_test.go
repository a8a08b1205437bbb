package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gnemet/pivotgrid"
)

func buildSales(t *testing.T, totals pivotgrid.TotalsConfig) *pivotgrid.PivotResult {
	t.Helper()
	res, err := pivotgrid.Build(pivotgrid.PivotInput{
		Rows: []map[string]interface{}{
			{"region": "East", "product": "A", "sales": 100},
			{"region": "East", "product": "B", "sales": 200},
			{"region": "West", "product": "A", "sales": 50},
		},
		GroupColumns: []pivotgrid.ColumnSpec{{Field: "region", Label: "Region"}},
		PivotColumns: []pivotgrid.ColumnSpec{{Field: "product", Label: "Product"}},
		ValueColumns: []pivotgrid.ColumnSpec{{Field: "sales", Label: "Sales"}},
		Totals:       totals,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return res
}

func TestWriteCSV(t *testing.T) {
	res := buildSales(t, pivotgrid.TotalsConfig{})

	var buf bytes.Buffer
	if err := WriteCSV(context.Background(), &buf, res, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		",A,B",
		"Region,Sales,Sales",
		"East,100,200",
		"West,50,",
	}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("Line %d: got %q, want %q", i, lines[i], w)
		}
	}
}

func TestWriteCSVMergedHeaders(t *testing.T) {
	res := buildSales(t, pivotgrid.TotalsConfig{ShowRowTotals: true, RowTotalsPosition: "right"})

	var buf bytes.Buffer
	if err := WriteCSV(context.Background(), &buf, res, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	// One value column: the total header occupies exactly one field
	if lines[0] != ",A,B,Grand Total" {
		t.Errorf("Unexpected header line: %q", lines[0])
	}
	// No precomputed total dataset was supplied: total cells render empty
	if lines[2] != "East,100,200," {
		t.Errorf("Unexpected data line: %q", lines[2])
	}
}

func TestWriteCSVCancellation(t *testing.T) {
	res := buildSales(t, pivotgrid.TotalsConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := WriteCSV(ctx, &buf, res, CSVOptions{ChunkSize: 1}); err == nil {
		t.Errorf("Expected context error with canceled context")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{float64(1234.5), "1234.5"},
		{float64(100), "100"},
		{42, "42"},
		{"East", "East"},
	}
	for _, c := range cases {
		if got := formatValue(c.in); got != c.want {
			t.Errorf("formatValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
