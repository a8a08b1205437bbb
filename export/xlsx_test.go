package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/gnemet/pivotgrid"
)

func TestWriteXLSX(t *testing.T) {
	res := buildSales(t, pivotgrid.TotalsConfig{})

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, res, XLSXOptions{}); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue("Pivot", cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		return v
	}

	// Column headers right of the row-header block
	if get("B1") != "A" || get("C1") != "B" {
		t.Errorf("Unexpected pivot headers: %q / %q", get("B1"), get("C1"))
	}
	if get("B2") != "Sales" || get("C2") != "Sales" {
		t.Errorf("Unexpected value labels: %q / %q", get("B2"), get("C2"))
	}
	// Corner block carries the group label on the last header row
	if get("A2") != "Region" {
		t.Errorf("Expected corner label Region, got %q", get("A2"))
	}
	// Data block
	if get("A3") != "East" || get("B3") != "100" || get("C3") != "200" {
		t.Errorf("Unexpected first data row: %q %q %q", get("A3"), get("B3"), get("C3"))
	}
	// Null renders empty, not "0"
	if get("C4") != "" {
		t.Errorf("Expected empty cell for null, got %q", get("C4"))
	}
}

func TestWriteXLSXRowSpans(t *testing.T) {
	res, err := pivotgrid.Build(pivotgrid.PivotInput{
		Rows: []map[string]interface{}{
			{"region": "East", "product": "A", "sales": 100},
			{"region": "East", "product": "B", "sales": 200},
			{"region": "West", "product": "A", "sales": 50},
		},
		GroupColumns: []pivotgrid.ColumnSpec{{Field: "region", Label: "Region"}, {Field: "product", Label: "Product"}},
		ValueColumns: []pivotgrid.ColumnSpec{{Field: "sales", Label: "Sales"}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, res, XLSXOptions{SheetName: "Report"}); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	merges, err := f.GetMergeCells("Report")
	if err != nil {
		t.Fatalf("GetMergeCells: %v", err)
	}
	found := false
	for _, m := range merges {
		if m.GetStartAxis() == "A2" && m.GetEndAxis() == "A3" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected merge A2:A3 for the East span, merges: %+v", merges)
	}

	v, _ := f.GetCellValue("Report", "A2")
	if v != "East" {
		t.Errorf("Expected East at A2, got %q", v)
	}
}
