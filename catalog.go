package pivotgrid

import (
	"encoding/json"
	"fmt"
	"os"
)

// Catalog is the JSON report-definition file format. One catalog can define
// several pivot reports over the same worksheet family.
type Catalog struct {
	Version string      `json:"version"`
	Title   string      `json:"title,omitempty"`
	Reports []ReportDef `json:"reports"`
}

type ReportDef struct {
	Name      string          `json:"name"`
	Worksheet string          `json:"worksheet"`
	Group     []CatalogColumn `json:"group"`
	Pivot     []CatalogColumn `json:"pivot"`
	Values    []CatalogColumn `json:"values"`
	Totals    TotalsConfig    `json:"totals"`
}

// CatalogColumn carries multilingual labels; Labels[lang] wins over the
// "en" fallback and the raw field name.
type CatalogColumn struct {
	Field  string            `json:"field"`
	Type   string            `json:"type,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Format string            `json:"format,omitempty"`
	Rules  []Rule            `json:"rules,omitempty"`
}

// Report is one catalog report resolved for a language, ready for Build.
type Report struct {
	Name         string
	Title        string
	Worksheet    string
	GroupColumns []ColumnSpec
	PivotColumns []ColumnSpec
	ValueColumns []ColumnSpec
	Totals       TotalsConfig
}

// NewReportFromCatalog loads a catalog file and resolves the named report.
// An empty name selects the first report.
func NewReportFromCatalog(path, name, lang string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReportFromData(data, name, lang)
}

// NewReportFromData resolves a report from raw catalog JSON.
func NewReportFromData(data []byte, name, lang string) (*Report, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if len(cat.Reports) == 0 {
		return nil, fmt.Errorf("no reports found in catalog")
	}

	var def *ReportDef
	if name == "" {
		def = &cat.Reports[0]
	} else {
		for i := range cat.Reports {
			if cat.Reports[i].Name == name {
				def = &cat.Reports[i]
				break
			}
		}
	}
	if def == nil {
		return nil, fmt.Errorf("report %q not found in catalog", name)
	}

	return &Report{
		Name:         def.Name,
		Title:        cat.Title,
		Worksheet:    def.Worksheet,
		GroupColumns: resolveColumns(def.Group, lang),
		PivotColumns: resolveColumns(def.Pivot, lang),
		ValueColumns: resolveColumns(def.Values, lang),
		Totals:       def.Totals,
	}, nil
}

// Build runs the pivot for this report over a fetched dataset snapshot.
func (r *Report) Build(rows, rowTotals, colTotals []map[string]interface{}) (*PivotResult, error) {
	return Build(PivotInput{
		Rows:         rows,
		RowTotals:    rowTotals,
		ColTotals:    colTotals,
		GroupColumns: r.GroupColumns,
		PivotColumns: r.PivotColumns,
		ValueColumns: r.ValueColumns,
		Totals:       r.Totals,
	})
}

func resolveColumns(defs []CatalogColumn, lang string) []ColumnSpec {
	specs := make([]ColumnSpec, len(defs))
	for i, d := range defs {
		label := d.Field
		if l, ok := d.Labels[lang]; ok {
			label = l
		} else if l, ok := d.Labels["en"]; ok {
			label = l
		}
		specs[i] = ColumnSpec{
			Field:  d.Field,
			Label:  label,
			Type:   d.Type,
			Format: d.Format,
			Rules:  d.Rules,
		}
	}
	return specs
}
