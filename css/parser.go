package css

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	// selectors of a group ("a, b { ... }") may arrive as several qualified rules
	var pendingSelectors []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if parser.Err() != nil && parser.Err().Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
			}
			return sheet

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			p.skipAtRuleBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "unsupported at-rule block: "+atRule)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			atRule := string(data)
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Imports = append(sheet.Imports, url)
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.QualifiedRuleGrammar:
			pendingSelectors = append(pendingSelectors, p.parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pendingSelectors, p.parseSelectors(data, parser.Values())...)
			pendingSelectors = nil

			props := p.parseDeclarations(parser)

			// Create rules for each selector
			for _, selStr := range selectors {
				sel, err := ParseSelector(selStr)
				if err != nil {
					sheet.Warnings = append(sheet.Warnings, err.Error())
					p.log.Debug("Skipping selector", zap.String("selector", selStr), zap.Error(err))
					continue
				}
				// Clone properties for each rule
				propsCopy := make(map[string]Value, len(props))
				maps.Copy(propsCopy, props)
				sheet.Rules = append(sheet.Rules, Rule{
					Selector:   sel,
					Properties: propsCopy,
					Order:      len(sheet.Rules),
				})
			}
		}
	}
}

// ParseInline parses declaration list of an inline style attribute, e.g.
// "color: red; margin: 4px".
func ParseInline(text string) Style {
	style := make(Style)
	parser := css.NewParser(parse.NewInput(strings.NewReader(text)), true)
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return style
		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				style[strings.ToLower(string(data))] = parsePropertyValue(values)
			}
		}
	}
}

// ParseValue parses a single property value, e.g. "12px" or "#fff".
func ParseValue(raw string) Value {
	lexer := css.NewLexer(parse.NewInput(strings.NewReader(raw)))
	var tokens []css.Token
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}
		// lexer reuses its buffer
		tokens = append(tokens, css.Token{TokenType: tt, Data: bytes.Clone(data)})
	}
	// trim leading whitespace, parsePropertyValue expects value tokens first
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	return parsePropertyValue(tokens)
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something) - the token data is the full url(...) string
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors extracts selector strings from token data.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	// Build full selector string from data and values
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	// Split by comma for grouped selectors
	var selectors []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser) map[string]Value {
	props := make(map[string]Value)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return props

		case css.DeclarationGrammar:
			propName := strings.ToLower(string(data))
			values := parser.Values()
			if len(values) > 0 {
				props[propName] = parsePropertyValue(values)
			}

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) - not supported
			continue
		}
	}
}

// parsePropertyValue converts CSS tokens to a Value.
func parsePropertyValue(tokens []css.Token) Value {
	if len(tokens) == 0 {
		return Value{}
	}

	// Build raw value string
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			// Add space between non-whitespace tokens
			rawParts = append(rawParts, " ")
		}
	}
	raw := strings.TrimSpace(strings.Join(rawParts, ""))

	val := Value{Raw: raw}

	// Handle single token cases
	if len(tokens) == 1 || (len(tokens) == 2 && tokens[1].TokenType == css.WhitespaceToken) {
		t := tokens[0]
		switch t.TokenType {
		case css.DimensionToken:
			val.Value, val.Unit = parseDimension(string(t.Data))
		case css.PercentageToken:
			val.Value, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
			val.Unit = "%"
		case css.NumberToken:
			val.Value, _ = strconv.ParseFloat(string(t.Data), 64)
		case css.IdentToken:
			val.Keyword = strings.ToLower(string(t.Data))
		case css.StringToken:
			val.Keyword = unquote(string(t.Data))
		case css.HashToken:
			// Color value
			val.Keyword = string(t.Data)
		}
		return val
	}

	// Functions (rgb(), url(), etc.) and multi-value properties keep raw text
	val.Keyword = raw
	return val
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	// Find where number ends
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(s[numEnd:])
	return num, unit
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

var errEmptySelector = errors.New("empty selector")

// ParseSelector parses selector text such as "list > item.row:nth-child(odd) text".
// Only element, class, universal, descendant and child combinators and
// position pseudo-classes are supported.
func ParseSelector(selStr string) (Selector, error) {
	selStr = strings.TrimSpace(selStr)
	tokens, err := splitSelector(selStr)
	if err != nil {
		return Selector{Raw: selStr}, err
	}
	if len(tokens) == 0 {
		return Selector{Raw: selStr}, errEmptySelector
	}

	var (
		cur        *Selector
		combinator = Descendant
		expectPart = true
	)
	for _, tok := range tokens {
		if tok == ">" {
			if expectPart {
				return Selector{Raw: selStr}, fmt.Errorf("misplaced child combinator: %s", selStr)
			}
			combinator = Child
			expectPart = true
			continue
		}
		part, err := parseCompound(tok)
		if err != nil {
			return Selector{Raw: selStr}, fmt.Errorf("%w: %s", err, selStr)
		}
		if cur != nil {
			part.Ancestor = cur
			part.Combinator = combinator
		}
		cur = &part
		combinator = Descendant
		expectPart = false
	}
	if expectPart {
		return Selector{Raw: selStr}, fmt.Errorf("dangling child combinator: %s", selStr)
	}
	cur.Raw = selStr
	return *cur, nil
}

// splitSelector breaks selector into compound parts and ">" tokens.
// Whitespace inside parentheses is dropped.
func splitSelector(s string) ([]string, error) {
	var (
		tokens []string
		part   strings.Builder
		depth  int
	)
	flush := func() {
		if part.Len() > 0 {
			tokens = append(tokens, part.String())
			part.Reset()
		}
	}
	for _, r := range s {
		if depth > 0 {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if !unicode.IsSpace(r) {
				part.WriteRune(r)
			}
			continue
		}
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '>':
			flush()
			tokens = append(tokens, ">")
		case r == '(':
			depth++
			part.WriteRune(r)
		case r == '+' || r == '~':
			return nil, fmt.Errorf("unsupported combinator selector: %s", s)
		case r == '[':
			return nil, fmt.Errorf("unsupported attribute selector: %s", s)
		case r == '#':
			return nil, fmt.Errorf("unsupported id selector: %s", s)
		default:
			part.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses: %s", s)
	}
	flush()
	return tokens, nil
}

// parseCompound parses element, classes and pseudo-classes of a single
// compound selector like "item.row.odd:first-child".
func parseCompound(s string) (Selector, error) {
	sel := Selector{Raw: s}

	i := 0
	name, n := readIdent(s[i:])
	if name == "" && strings.HasPrefix(s, "*") {
		name, n = "*", 1
	}
	sel.Element = strings.ToLower(name)
	i += n

	for i < len(s) {
		switch s[i] {
		case '.':
			class, n := readIdent(s[i+1:])
			if class == "" {
				return sel, errors.New("empty class name")
			}
			sel.Classes = append(sel.Classes, class)
			i += 1 + n
		case ':':
			if strings.HasPrefix(s[i:], "::") {
				return sel, errors.New("unsupported pseudo-element")
			}
			pseudo, n, err := parsePseudo(s[i+1:])
			if err != nil {
				return sel, err
			}
			sel.Pseudo = append(sel.Pseudo, pseudo)
			i += 1 + n
		default:
			return sel, fmt.Errorf("unexpected character %q", s[i])
		}
	}
	return sel, nil
}

// parsePseudo parses pseudo-class name (without leading colon) and its
// argument, returning number of consumed bytes.
func parsePseudo(s string) (PseudoClass, int, error) {
	name, n := readIdent(s)
	switch strings.ToLower(name) {
	case "first-child":
		return PseudoClass{Kind: FirstChild}, n, nil
	case "last-child":
		return PseudoClass{Kind: LastChild}, n, nil
	case "only-child":
		return PseudoClass{Kind: OnlyChild}, n, nil
	case "nth-child":
		if n >= len(s) || s[n] != '(' {
			return PseudoClass{}, 0, errors.New("nth-child requires an argument")
		}
		end := strings.IndexByte(s[n:], ')')
		if end < 0 {
			return PseudoClass{}, 0, errors.New("unterminated nth-child argument")
		}
		nth, err := ParseNth(s[n+1 : n+end])
		if err != nil {
			return PseudoClass{}, 0, err
		}
		return PseudoClass{Kind: NthChild, Nth: nth}, n + end + 1, nil
	}
	return PseudoClass{}, 0, fmt.Errorf("unsupported pseudo-class :%s", name)
}

// ParseNth parses argument of :nth-child(): "odd", "even", "3", "2n+1", "-n+3".
func ParseNth(arg string) (Nth, error) {
	arg = strings.ToLower(strings.Join(strings.Fields(arg), ""))
	switch arg {
	case "odd":
		return Nth{A: 2, B: 1}, nil
	case "even":
		return Nth{A: 2, B: 0}, nil
	case "":
		return Nth{}, errors.New("empty nth-child argument")
	}

	a, b, found := strings.Cut(arg, "n")
	if !found {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return Nth{}, fmt.Errorf("bad nth-child argument %q", arg)
		}
		return Nth{B: v}, nil
	}

	var nth Nth
	switch a {
	case "", "+":
		nth.A = 1
	case "-":
		nth.A = -1
	default:
		v, err := strconv.Atoi(a)
		if err != nil {
			return Nth{}, fmt.Errorf("bad nth-child argument %q", arg)
		}
		nth.A = v
	}
	if b != "" {
		v, err := strconv.Atoi(b)
		if err != nil {
			return Nth{}, fmt.Errorf("bad nth-child argument %q", arg)
		}
		nth.B = v
	}
	return nth, nil
}

// readIdent returns CSS identifier at the start of s and its length in bytes.
func readIdent(s string) (string, int) {
	end := 0
	for i, r := range s {
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || r > unicode.MaxASCII {
			end = i + len(string(r))
			continue
		}
		break
	}
	return s[:end], end
}
