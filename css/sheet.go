package css

import (
	"maps"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ncss/scope"
)

// Sheet resolves styles for element paths against one or more stylesheets.
// Results are memoized per path key. Sheet is safe for concurrent use.
type Sheet struct {
	log   *zap.Logger
	rules []Rule

	mu   sync.RWMutex
	memo map[string]Style
}

// NewSheet combines stylesheets in the given order, later sheets win ties in
// specificity.
func NewSheet(log *zap.Logger, sheets ...*Stylesheet) *Sheet {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sheet{
		log:  log.Named("css-sheet"),
		memo: make(map[string]Style),
	}
	s.Add(sheets...)
	return s
}

// Add appends rules of stylesheets after already present ones and drops
// memoized styles.
func (s *Sheet) Add(sheets ...*Stylesheet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, rule := range sheet.Rules {
			rule.Order = len(s.rules)
			s.rules = append(s.rules, rule)
		}
	}
	clear(s.memo)
}

// Len returns number of rules in the sheet.
func (s *Sheet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// MatchingRules returns rules matching the last node of path ordered by
// ascending specificity, ties broken by source order.
func (s *Sheet) MatchingRules(path scope.Path) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Rule
	for i := range s.rules {
		if s.rules[i].Selector.Matches(path) {
			matched = append(matched, s.rules[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Selector.Specificity() < matched[j].Selector.Specificity()
	})
	return matched
}

// Match computes style of the last node of path. Key must be the path key
// of path - equal keys are assumed to describe equal paths, so the result is
// memoized under it. Empty key disables memoization.
func (s *Sheet) Match(path scope.Path, key string) Style {
	if key != "" {
		s.mu.RLock()
		style, ok := s.memo[key]
		s.mu.RUnlock()
		if ok {
			return style
		}
	}

	style := make(Style)
	rules := s.MatchingRules(path)
	for _, rule := range rules {
		maps.Copy(style, rule.Properties)
	}

	s.log.Debug("Style matched", zap.Stringer("path", path), zap.Int("rules", len(rules)), zap.Int("properties", len(style)))

	if key != "" {
		s.mu.Lock()
		if prev, ok := s.memo[key]; ok {
			style = prev
		} else {
			s.memo[key] = style
		}
		s.mu.Unlock()
	}
	return style
}
