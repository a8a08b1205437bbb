package pivotgrid

// Semantic column types understood by the engine.
const (
	TypeCategorical = "categorical"
	TypeNumeric     = "numeric"
	TypeDate        = "date"
	TypeDateTime    = "datetime"
)

// Composite keys join their components with a control character so they can
// never collide with real data values. The subtotal component sorts after any
// printable value, which keeps injected subtotal rows below their group.
const (
	keyDelim     = "\x1f"
	subtotalPart = "\x7fTotal"
)

// TotalKey marks the grand-total entry in RowKeys and ColumnKeys.
const TotalKey = "\x1dTOTAL\x1d"

// ColumnSpec describes one configured column. The caller partitions specs
// into group (row dimension), pivot (column dimension) and value (measure)
// sequences; order is significant in all three.
type ColumnSpec struct {
	Field  string `json:"field" yaml:"field"`
	Label  string `json:"label,omitempty" yaml:"label"`
	Type   string `json:"type,omitempty" yaml:"type"`
	Format string `json:"format,omitempty" yaml:"format"`
	Rules  []Rule `json:"rules,omitempty" yaml:"rules"`
}

func (c ColumnSpec) displayName() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Field
}

// TotalsConfig controls grand-total and subtotal placement. Note the role
// reversal: row totals add a column, column totals add a row.
type TotalsConfig struct {
	ShowRowTotals        bool   `json:"show_row_totals" yaml:"show_row_totals"`
	RowTotalsPosition    string `json:"row_totals_position,omitempty" yaml:"row_totals_position"` // left | right
	ShowColumnTotals     bool   `json:"show_column_totals" yaml:"show_column_totals"`
	ColumnTotalsPosition string `json:"column_totals_position,omitempty" yaml:"column_totals_position"` // top | bottom
	ShowSubtotals        bool   `json:"show_subtotals" yaml:"show_subtotals"`
	Label                string `json:"label,omitempty" yaml:"label"`
}

func (t TotalsConfig) totalLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return "Grand Total"
}

// Style is advisory cell formatting. Serializers may apply or ignore it.
type Style struct {
	FontColor  string `json:"font_color,omitempty" yaml:"font_color"`
	Background string `json:"background,omitempty" yaml:"background"`
	Bold       bool   `json:"bold,omitempty" yaml:"bold"`
	Italic     bool   `json:"italic,omitempty" yaml:"italic"`
	Align      string `json:"align,omitempty" yaml:"align"`
	Icon       string `json:"icon,omitempty" yaml:"icon"`
}

// Merge overlays the set properties of other onto a copy of s. Later rules
// win property by property, so configuration order is significant.
func (s Style) Merge(other Style) Style {
	out := s
	if other.FontColor != "" {
		out.FontColor = other.FontColor
	}
	if other.Background != "" {
		out.Background = other.Background
	}
	if other.Bold {
		out.Bold = true
	}
	if other.Italic {
		out.Italic = true
	}
	if other.Align != "" {
		out.Align = other.Align
	}
	if other.Icon != "" {
		out.Icon = other.Icon
	}
	return out
}

// HeaderCell is one rendered header slot. Row header cells absorbed into a
// vertical span above them stay in place with Visible=false so the matrix
// geometry is preserved.
type HeaderCell struct {
	Label   string `json:"label"`
	ColSpan int    `json:"colspan"`
	RowSpan int    `json:"rowspan"`
	Visible bool   `json:"visible"`
	Style   *Style `json:"style,omitempty"`
}

// Cell is one slot of the data matrix. A nil Value renders empty, never "0".
type Cell struct {
	Value interface{} `json:"value"`
	Style *Style      `json:"style,omitempty"`
}

// PivotInput is one immutable snapshot handed to Build. RowTotals and
// ColTotals are optional precomputed grand-total datasets of the same row
// shape as Rows.
type PivotInput struct {
	Rows      []map[string]interface{}
	RowTotals []map[string]interface{}
	ColTotals []map[string]interface{}

	GroupColumns []ColumnSpec
	PivotColumns []ColumnSpec
	ValueColumns []ColumnSpec
	Totals       TotalsConfig
}

// PivotResult is the single output structure consumed by preview rendering
// and the spreadsheet/CSV serializers.
type PivotResult struct {
	RowKeys    []string `json:"row_keys"`
	ColumnKeys []string `json:"column_keys"`

	// GroupLabels are the display names of the group columns, rendered by
	// serializers in the top-left corner block.
	GroupLabels []string `json:"group_labels"`

	// HeaderRows holds one row per pivot level plus a trailing row of value
	// column labels; inner slices contain only the merged cells.
	HeaderRows [][]HeaderCell `json:"header_rows"`

	// RowHeaders holds one inner slice per output row, one cell per group
	// column level.
	RowHeaders [][]HeaderCell `json:"row_headers"`

	// Matrix rows all have width len(ColumnKeys) * len(ValueColumns), in
	// column-key-major, value-column-minor order.
	Matrix [][]Cell `json:"matrix"`

	// ValueColumns is carried along for serializers (display formats).
	ValueColumns []ColumnSpec `json:"value_columns"`

	// Unmapped lists configured fields that could not be matched to any key
	// of the dataset. Non-fatal: their cells render blank.
	Unmapped []string `json:"unmapped,omitempty"`
}
