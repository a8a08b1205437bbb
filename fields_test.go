package pivotgrid

import "testing"

func TestResolveFieldTiers(t *testing.T) {
	// Test case 1: exact identifier match
	row := map[string]interface{}{"sales": 10}
	if v, ok := resolveField(row, "sales", ""); !ok || v != 10 {
		t.Errorf("Expected exact match, got %v (%v)", v, ok)
	}

	// Test case 2: display-name match
	row = map[string]interface{}{"Sales Amount": 20}
	if v, ok := resolveField(row, "sales", "Sales Amount"); !ok || v != 20 {
		t.Errorf("Expected label match, got %v (%v)", v, ok)
	}

	// Test case 3: bracket/whitespace stripping
	row = map[string]interface{}{"  [Sales Amount]  ": 42}
	if v, ok := resolveField(row, "Sales Amount", ""); !ok || v != 42 {
		t.Errorf("Expected normalized match, got %v (%v)", v, ok)
	}

	// Test case 4: case-insensitive fallback
	row = map[string]interface{}{"SALES": 30}
	if v, ok := resolveField(row, "sales", ""); !ok || v != 30 {
		t.Errorf("Expected case-insensitive match, got %v (%v)", v, ok)
	}

	// Test case 5: no match means absent, not zero
	row = map[string]interface{}{"region": "East"}
	if v, ok := resolveField(row, "sales", ""); ok || v != nil {
		t.Errorf("Expected no match, got %v (%v)", v, ok)
	}
}

func TestBuildFieldMapSubstring(t *testing.T) {
	first := map[string]interface{}{"total_sales_amount": 1, "region_name": "East"}
	fm := buildFieldMap(first, []ColumnSpec{{Field: "sales_amount"}, {Field: "region"}})

	if fm["sales_amount"] != "total_sales_amount" {
		t.Errorf("Expected substring mapping, got %q", fm["sales_amount"])
	}
	if fm["region"] != "region_name" {
		t.Errorf("Expected substring mapping, got %q", fm["region"])
	}
}

func TestRawValueFallback(t *testing.T) {
	// Cached key built from the first row, missing on a sparse later row
	first := map[string]interface{}{"Sales Amount": 1}
	fm := buildFieldMap(first, []ColumnSpec{{Field: "sales amount"}})

	sparse := map[string]interface{}{"  [sales amount]  ": 5}
	if v, ok := rawValue(sparse, ColumnSpec{Field: "sales amount"}, fm); !ok || v != 5 {
		t.Errorf("Expected per-row fallback to resolve, got %v (%v)", v, ok)
	}
}

func TestNormalizeField(t *testing.T) {
	if got := normalizeField("  [Sales Amount]  "); got != "Sales Amount" {
		t.Errorf("Expected 'Sales Amount', got %q", got)
	}
}
