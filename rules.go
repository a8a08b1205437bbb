package pivotgrid

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Rule kinds. Rules are pure data plus one evaluation branch per kind.
const (
	RuleCellValue  = "cellValue"
	RuleTopBottom  = "topBottom"
	RuleColorScale = "colorScale"
	RuleIconSet    = "iconSet"
)

// Rule is one conditional-format rule. Which fields matter depends on Kind;
// unknown kinds never match. Rules on a column apply in slice order and
// later matches overwrite earlier style properties where they overlap.
type Rule struct {
	Kind string `json:"kind" yaml:"kind"`

	// cellValue: operator over one or two literal comparands. Non-numeric
	// cell values only support ==, != and contains.
	Operator string `json:"operator,omitempty" yaml:"operator"` // > < >= <= == != between contains
	Value    string `json:"value,omitempty" yaml:"value"`
	Value2   string `json:"value2,omitempty" yaml:"value2"`
	Style    Style  `json:"style,omitempty" yaml:"style"`

	// topBottom: count is absolute, or a percentage of the column's value
	// population when Percent is set.
	Mode    string  `json:"mode,omitempty" yaml:"mode"` // top | bottom
	Count   float64 `json:"count,omitempty" yaml:"count"`
	Percent bool    `json:"percent,omitempty" yaml:"percent"`

	// colorScale: 2-color when MidColor is empty, 3-color otherwise. The
	// midpoint is the arithmetic mean of min and max, not the median.
	MinColor string `json:"min_color,omitempty" yaml:"min_color"`
	MidColor string `json:"mid_color,omitempty" yaml:"mid_color"`
	MaxColor string `json:"max_color,omitempty" yaml:"max_color"`

	// iconSet: named icon family; the resolved bucket lands in Style.Icon
	// as "<family>:<bucket>".
	IconSet      string `json:"icon_set,omitempty" yaml:"icon_set"`
	ReverseIcons bool   `json:"reverse_icons,omitempty" yaml:"reverse_icons"`
}

// evalRules applies a column's rules in order against one cell value, with
// the column's numeric population as context for rank and scale rules.
// Returns the merged style and whether any rule produced one.
func evalRules(rules []Rule, value interface{}, pop []float64) (Style, bool) {
	var merged Style
	matched := false
	for _, r := range rules {
		if st, ok := evalRule(r, value, pop); ok {
			merged = merged.Merge(st)
			matched = true
		}
	}
	return merged, matched
}

func evalRule(r Rule, value interface{}, pop []float64) (Style, bool) {
	switch r.Kind {
	case RuleCellValue:
		if evalCellValue(r, value) {
			return r.Style, true
		}
	case RuleTopBottom:
		if evalTopBottom(r, value, pop) {
			return r.Style, true
		}
	case RuleColorScale:
		if color, ok := evalColorScale(r, value, pop); ok {
			return Style{Background: color}, true
		}
	case RuleIconSet:
		if bucket, ok := evalIconBucket(r, value, pop); ok {
			return Style{Icon: fmt.Sprintf("%s:%d", r.IconSet, bucket)}, true
		}
	}
	return Style{}, false
}

func evalCellValue(r Rule, value interface{}) bool {
	if value == nil {
		return false
	}
	num, isNum := parseNumber(value)
	cmp, cmpOK := parseNumber(r.Value)

	if isNum && cmpOK {
		switch r.Operator {
		case ">":
			return num > cmp
		case "<":
			return num < cmp
		case ">=":
			return num >= cmp
		case "<=":
			return num <= cmp
		case "==":
			return num == cmp
		case "!=":
			return num != cmp
		case "between":
			hi, ok := parseNumber(r.Value2)
			if !ok {
				return false
			}
			lo := cmp
			if lo > hi {
				lo, hi = hi, lo
			}
			return num >= lo && num <= hi
		}
	}

	// String semantics for everything unparsable.
	s := keyComponent(value)
	switch r.Operator {
	case "==":
		return s == r.Value
	case "!=":
		return s != r.Value
	case "contains":
		return strings.Contains(strings.ToLower(s), strings.ToLower(r.Value))
	}
	return false
}

// evalTopBottom resolves the threshold from the ascending population: the
// top-N threshold is sorted[len-n], the bottom-N threshold sorted[n-1], so
// exactly n values qualify (modulo ties). Percent counts round up.
func evalTopBottom(r Rule, value interface{}, pop []float64) bool {
	num, ok := parseNumber(value)
	if !ok || len(pop) == 0 {
		return false
	}
	n := int(r.Count)
	if r.Percent {
		n = int(math.Ceil(float64(len(pop)) * r.Count / 100))
	}
	if n <= 0 {
		return false
	}
	if n > len(pop) {
		n = len(pop)
	}

	sorted := append([]float64{}, pop...)
	sort.Float64s(sorted)

	if strings.EqualFold(r.Mode, "bottom") {
		return num <= sorted[n-1]
	}
	return num >= sorted[len(sorted)-n]
}

func evalColorScale(r Rule, value interface{}, pop []float64) (string, bool) {
	num, ok := parseNumber(value)
	if !ok || len(pop) == 0 {
		return "", false
	}
	min, max := popBounds(pop)
	if min == max {
		return "", false
	}

	minColor, midColor, maxColor := r.MinColor, r.MidColor, r.MaxColor
	if minColor == "" && maxColor == "" {
		minColor, midColor, maxColor = "#F8696B", "#FFEB84", "#63BE7B"
	}

	if midColor == "" {
		return lerpColor(minColor, maxColor, (num-min)/(max-min)), true
	}
	mid := (min + max) / 2
	if num <= mid {
		return lerpColor(minColor, midColor, (num-min)/(mid-min)), true
	}
	return lerpColor(midColor, maxColor, (num-mid)/(max-mid)), true
}

// evalIconBucket partitions [min,max] into 3 equal-width buckets and
// reports which one the value falls into.
func evalIconBucket(r Rule, value interface{}, pop []float64) (int, bool) {
	num, ok := parseNumber(value)
	if !ok || len(pop) == 0 {
		return 0, false
	}
	min, max := popBounds(pop)

	bucket := 1
	if min != max {
		width := (max - min) / 3
		switch {
		case num < min+width:
			bucket = 0
		case num < min+2*width:
			bucket = 1
		default:
			bucket = 2
		}
	}
	if r.ReverseIcons {
		bucket = 2 - bucket
	}
	return bucket, true
}

func popBounds(pop []float64) (min, max float64) {
	min, max = pop[0], pop[0]
	for _, v := range pop[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// parseNumber is a best-effort numeric parse. Unlike coerceNumber it fails
// on unparsable input instead of defaulting to 0, so rule evaluation can
// fall back to string semantics.
func parseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case nil:
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", v)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// lerpColor linearly interpolates two hex colors. The endpoints are
// returned verbatim so a boundary value yields exactly the configured
// color.
func lerpColor(from, to string, t float64) string {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	fr, fg, fb, ok1 := parseHexColor(from)
	tr, tg, tb, ok2 := parseHexColor(to)
	if !ok1 || !ok2 {
		return from
	}
	mix := func(a, b int) int { return a + int(math.Round(t*float64(b-a))) }
	return fmt.Sprintf("#%02X%02X%02X", mix(fr, tr), mix(fg, tg), mix(fb, tb))
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(n >> 16 & 0xFF), int(n >> 8 & 0xFF), int(n & 0xFF), true
}
