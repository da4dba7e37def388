package css

import (
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// Style is a resolved set of declarations keyed by lowercase CSS property
// name. Styles returned by Sheet.Match are shared, never modify them in
// place - use Merge.
type Style map[string]Value

// Merge returns new style with declarations of override applied on top of
// base. Neither argument is modified.
func Merge(base, override Style) Style {
	merged := make(Style, len(base)+len(override))
	maps.Copy(merged, base)
	maps.Copy(merged, override)
	return merged
}

// Get returns value of a property.
func (s Style) Get(prop string) (Value, bool) {
	v, ok := s[prop]
	return v, ok
}

// Length returns property value in pixels. Unitless numbers are treated as
// pixels, "pt" is converted, other units are not resolvable without layout.
func (s Style) Length(prop string) (float64, bool) {
	v, ok := s[prop]
	if !ok || !v.IsNumeric() {
		return 0, false
	}
	switch v.Unit {
	case "", "px":
		return v.Value, true
	case "pt":
		return v.Value * 4 / 3, true
	}
	return 0, false
}

// Color parses color value of a property.
func (s Style) Color(prop string) (csscolorparser.Color, bool) {
	v, ok := s[prop]
	if !ok {
		return csscolorparser.Color{}, false
	}
	raw := v.Raw
	if raw == "" {
		raw = v.Keyword
	}
	c, err := csscolorparser.Parse(raw)
	if err != nil {
		return csscolorparser.Color{}, false
	}
	return c, true
}

// Native converts style to a map the way component frameworks without CSS
// expect it: camelCase property names, pixel values as numbers.
func (s Style) Native() map[string]any {
	out := make(map[string]any, len(s))
	for name, v := range s {
		out[camelCase(name)] = v.Native()
	}
	return out
}

// String returns declarations sorted by property name, e.g. "color: red; margin-top: 4px".
func (s Style) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+s[name].Raw)
	}
	return strings.Join(parts, "; ")
}

// StyleOf converts inline style property to Style. Accepted forms are Style,
// CSS declaration text and native style maps (camelCase or kebab-case keys).
func StyleOf(v any) (Style, bool) {
	switch st := v.(type) {
	case Style:
		return st, true
	case map[string]Value:
		return Style(st), true
	case string:
		return ParseInline(st), true
	case map[string]string:
		out := make(Style, len(st))
		for name, raw := range st {
			out[kebabCase(name)] = ParseValue(raw)
		}
		return out, true
	case map[string]any:
		out := make(Style, len(st))
		for name, val := range st {
			if v, ok := nativeValue(val); ok {
				out[kebabCase(name)] = v
			}
		}
		return out, true
	}
	return nil, false
}

func nativeValue(val any) (Value, bool) {
	switch n := val.(type) {
	case string:
		return ParseValue(n), true
	case float64:
		return Value{Raw: strconv.FormatFloat(n, 'f', -1, 64), Value: n}, true
	case float32:
		return nativeValue(float64(n))
	case int:
		return nativeValue(float64(n))
	case int64:
		return nativeValue(float64(n))
	case Value:
		return n, true
	}
	return Value{}, false
}

// camelCase converts "background-color" to "backgroundColor".
func camelCase(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	var sb strings.Builder
	upper := false
	for _, r := range name {
		if r == '-' {
			upper = sb.Len() > 0
			continue
		}
		if upper {
			sb.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// kebabCase converts "backgroundColor" to "background-color".
func kebabCase(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
