package pivotgrid

import "testing"

const testCatalog = `{
  "version": "1.0",
  "title": "Sales",
  "reports": [
    {
      "name": "by_region",
      "worksheet": "sales_flat",
      "group": [
        {"field": "region", "labels": {"en": "Region", "hu": "Régió"}}
      ],
      "pivot": [
        {"field": "product", "labels": {"en": "Product"}}
      ],
      "values": [
        {"field": "sales", "format": "#,##0.00",
         "rules": [{"kind": "topBottom", "mode": "top", "count": 3, "style": {"bold": true}}]}
      ],
      "totals": {"show_row_totals": true, "row_totals_position": "right"}
    }
  ]
}`

func TestNewReportFromData(t *testing.T) {
	report, err := NewReportFromData([]byte(testCatalog), "by_region", "hu")
	if err != nil {
		t.Fatalf("NewReportFromData failed: %v", err)
	}

	if report.Worksheet != "sales_flat" {
		t.Errorf("Expected worksheet sales_flat, got %q", report.Worksheet)
	}
	if report.GroupColumns[0].Label != "Régió" {
		t.Errorf("Expected Hungarian label, got %q", report.GroupColumns[0].Label)
	}
	// Missing language falls back to "en"
	if report.PivotColumns[0].Label != "Product" {
		t.Errorf("Expected en fallback, got %q", report.PivotColumns[0].Label)
	}
	if report.ValueColumns[0].Format != "#,##0.00" {
		t.Errorf("Format not carried over: %q", report.ValueColumns[0].Format)
	}
	if len(report.ValueColumns[0].Rules) != 1 || report.ValueColumns[0].Rules[0].Kind != RuleTopBottom {
		t.Errorf("Rules not carried over: %+v", report.ValueColumns[0].Rules)
	}
	if !report.Totals.ShowRowTotals {
		t.Errorf("Totals config not carried over")
	}
}

func TestNewReportFromDataSelection(t *testing.T) {
	// Empty name selects the first report
	report, err := NewReportFromData([]byte(testCatalog), "", "en")
	if err != nil {
		t.Fatalf("NewReportFromData failed: %v", err)
	}
	if report.Name != "by_region" {
		t.Errorf("Expected first report, got %q", report.Name)
	}

	if _, err := NewReportFromData([]byte(testCatalog), "nope", "en"); err == nil {
		t.Errorf("Expected error for unknown report name")
	}
	if _, err := NewReportFromData([]byte(`{"version":"1.0","reports":[]}`), "", "en"); err == nil {
		t.Errorf("Expected error for empty catalog")
	}
}

func TestReportBuild(t *testing.T) {
	report, err := NewReportFromData([]byte(testCatalog), "by_region", "en")
	if err != nil {
		t.Fatalf("NewReportFromData failed: %v", err)
	}
	res, err := report.Build([]map[string]interface{}{
		{"region": "East", "product": "A", "sales": 100},
	}, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.GroupLabels[0] != "Region" {
		t.Errorf("Expected resolved group label, got %q", res.GroupLabels[0])
	}
	if res.ColumnKeys[len(res.ColumnKeys)-1] != TotalKey {
		t.Errorf("Expected row-totals column on the right")
	}
}
