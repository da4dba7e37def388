package css

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"ncss/scope"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "bold", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "pt", etc.
	Keyword string  // Keyword if applicable: "bold", "italic", "center", etc.
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	// If there's a unit, it's definitely numeric
	if v.Unit != "" {
		return true
	}
	// Non-zero value with no keyword is numeric
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	// Check if Raw looks like a numeric value (handles "0" case)
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Native returns value the way native style objects carry it: unitless and
// pixel lengths become float64, everything else stays a string.
func (v Value) Native() any {
	if v.IsNumeric() && (v.Unit == "" || v.Unit == "px") {
		return v.Value
	}
	if v.Raw != "" {
		return v.Raw
	}
	return v.Keyword
}

// Combinator joins a compound selector to its ancestor part.
type Combinator int

const (
	Descendant Combinator = iota // "a b"
	Child                        // "a > b"
)

// String returns the CSS representation of the combinator.
func (c Combinator) String() string {
	if c == Child {
		return " > "
	}
	return " "
}

// PseudoKind enumerates supported position pseudo-classes.
type PseudoKind int

const (
	FirstChild PseudoKind = iota
	LastChild
	OnlyChild
	NthChild
)

// Nth is "an+b" argument of :nth-child().
type Nth struct {
	A, B int
}

// Matches reports whether 1-based index satisfies an+b for some n >= 0.
func (n Nth) Matches(index int) bool {
	if index < 1 {
		return false
	}
	if n.A == 0 {
		return index == n.B
	}
	d := index - n.B
	return d%n.A == 0 && d/n.A >= 0
}

// PseudoClass is a single position constraint of a compound selector.
type PseudoClass struct {
	Kind PseudoKind
	Nth  Nth // only for NthChild
}

// String returns the CSS representation of the pseudo-class.
func (p PseudoClass) String() string {
	switch p.Kind {
	case FirstChild:
		return ":first-child"
	case LastChild:
		return ":last-child"
	case OnlyChild:
		return ":only-child"
	default:
		return ":nth-child(" + strconv.Itoa(p.Nth.A) + "n+" + strconv.Itoa(p.Nth.B) + ")"
	}
}

func (p PseudoClass) matches(d scope.Descriptor) bool {
	switch p.Kind {
	case FirstChild:
		return d.First
	case LastChild:
		return d.Last
	case OnlyChild:
		return d.First && d.Last
	case NthChild:
		return p.Nth.Matches(d.Index)
	}
	return false
}

// Selector is a parsed CSS selector. The struct holds the right-most compound
// selector; Ancestor links to the part on its left joined by Combinator.
type Selector struct {
	Raw        string        // Original selector string
	Element    string        // Element name, "" or "*" for any element
	Classes    []string      // Required class names without dots
	Pseudo     []PseudoClass // Position constraints
	Combinator Combinator    // How Ancestor relates to this compound
	Ancestor   *Selector     // Left part of complex selector, nil for compound selector
}

// IsDescendant returns true if this selector has ancestor requirements.
func (s Selector) IsDescendant() bool {
	return s.Ancestor != nil
}

// Specificity returns cascade weight of the selector: ten per class or
// pseudo-class plus one per element name, summed over the whole chain.
func (s Selector) Specificity() int {
	weight := 0
	for cur := &s; cur != nil; cur = cur.Ancestor {
		weight += 10 * (len(cur.Classes) + len(cur.Pseudo))
		if cur.Element != "" && cur.Element != "*" {
			weight++
		}
	}
	return weight
}

// Matches reports whether the last node of path matches the selector. The
// synthetic root at the start of the path never matches anything.
func (s *Selector) Matches(path scope.Path) bool {
	return s.matchAt(path, len(path)-1)
}

func (s *Selector) matchAt(path scope.Path, i int) bool {
	if i < 1 || i >= len(path) {
		return false
	}
	if !s.matchesCompound(path[i]) {
		return false
	}
	if s.Ancestor == nil {
		return true
	}
	switch s.Combinator {
	case Child:
		return s.Ancestor.matchAt(path, i-1)
	default:
		for j := i - 1; j >= 1; j-- {
			if s.Ancestor.matchAt(path, j) {
				return true
			}
		}
	}
	return false
}

func (s *Selector) matchesCompound(d scope.Descriptor) bool {
	if s.Element != "" && s.Element != "*" && s.Element != d.Element {
		return false
	}
	for _, c := range s.Classes {
		if !d.HasClass(c) {
			return false
		}
	}
	for _, p := range s.Pseudo {
		if !p.matches(d) {
			return false
		}
	}
	return true
}

// Rule represents a single CSS rule (selector + properties).
type Rule struct {
	Selector   Selector         // Parsed selector
	Properties map[string]Value // Property name -> value
	Order      int              // Position in source, used to break specificity ties
}

// GetProperty returns the value for a property, or empty Value if not found.
func (r Rule) GetProperty(name string) (Value, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []Rule   // Supported rules in source order
	Imports  []string // @import URLs in source order
	Warnings []string // Warnings for unsupported features
}

// RulesBySelector returns all rules with the given selector string.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, rule := range s.Rules {
		if rule.Selector.Raw == selector {
			matches = append(matches, rule)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Property order within a rule is sorted alphabetically for deterministic output.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Rules {
		n, err := writeRule(w, &s.Rules[i])
		total += int64(n)
		if err != nil {
			return total, err
		}
		// Add blank line between rules (except after last)
		if i < len(s.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single CSS rule to w.
func writeRule(w io.Writer, rule *Rule) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s {\n", rule.Selector.Raw)
	total += n
	if err != nil {
		return total, err
	}

	names := make([]string, 0, len(rule.Properties))
	for name := range rule.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n, err = fmt.Fprintf(w, "  %s: %s;\n", name, rule.Properties[name].Raw)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
