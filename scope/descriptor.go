// Package scope keeps element ancestry paths used for selector matching in
// trees which have no native CSS cascade.
package scope

import (
	"strconv"
	"strings"
)

// RootElement is the element name of the synthetic path root.
const RootElement = "root"

// Descriptor captures a single level of the element hierarchy: element name,
// classes and position among siblings. Descriptors are never modified after
// construction.
type Descriptor struct {
	Element string   // lowercased element name
	Classes []string // flattened class tokens in source order
	Index   int      // 1-based position among siblings, 0 when unknown
	First   bool     // first among siblings
	Last    bool     // last among siblings
}

// Root is the synthetic descriptor every path starts with.
var Root = Descriptor{Element: RootElement}

// NewDescriptor builds descriptor from render inputs. Element name is
// lowercased, classes are flattened with Classes.
func NewDescriptor(element string, className any, index int, first, last bool) Descriptor {
	if index < 0 {
		index = 0
	}
	return Descriptor{
		Element: strings.ToLower(element),
		Classes: Classes(className),
		Index:   index,
		First:   first,
		Last:    last,
	}
}

// HasClass reports whether descriptor carries class token.
func (d Descriptor) HasClass(class string) bool {
	for _, c := range d.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// String returns CSS-like representation, e.g. "view.card.wide:nth-child(2):first-child".
func (d Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(d.Element)
	for _, c := range d.Classes {
		sb.WriteByte('.')
		sb.WriteString(c)
	}
	if d.Index > 0 {
		sb.WriteString(":nth-child(")
		sb.WriteString(strconv.Itoa(d.Index))
		sb.WriteByte(')')
	}
	if d.First {
		sb.WriteString(":first-child")
	}
	if d.Last {
		sb.WriteString(":last-child")
	}
	return sb.String()
}

// Classes flattens class name input into ordered list of non-empty tokens.
// Strings are split on whitespace, slices ([]string, []any) are walked
// recursively to any depth, everything else is ignored.
func Classes(className any) []string {
	var classes []string
	appendClasses(&classes, className)
	return classes
}

func appendClasses(dst *[]string, v any) {
	switch cn := v.(type) {
	case string:
		*dst = append(*dst, strings.Fields(cn)...)
	case []string:
		for _, s := range cn {
			*dst = append(*dst, strings.Fields(s)...)
		}
	case []any:
		for _, item := range cn {
			appendClasses(dst, item)
		}
	}
}
