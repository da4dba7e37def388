// Package proxy emulates CSS selectors for component trees. A styled proxy
// tracks the ancestry path of every wrapped component, matches it against
// stylesheet rules and hands the resolved style to the wrapped component.
package proxy

import (
	"strconv"

	"go.uber.org/zap"

	"ncss/css"
	"ncss/host"
	"ncss/scope"
)

// Properties recognized by styled proxies.
const (
	PropClassName  = "className"
	PropStyle      = "style"
	PropFirstChild = "firstChild"
	PropLastChild  = "lastChild"
	PropNthChild   = "nthChild"
)

// Matcher turns a path into a style. Key is the path key of path and may be
// used for memoization.
type Matcher interface {
	Match(path scope.Path, key string) css.Style
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(path scope.Path, key string) css.Style

// Match calls f.
func (f MatcherFunc) Match(path scope.Path, key string) css.Style {
	return f(path, key)
}

// MergeFunc applies override on top of base without modifying either.
type MergeFunc func(base, override css.Style) css.Style

// Styler creates styled proxies sharing one path cache and one matcher.
type Styler struct {
	log     *zap.Logger
	cache   scope.Cache
	matcher Matcher
	merge   MergeFunc
	native  bool
}

// Option configures Styler.
type Option func(*Styler)

// WithCache sets path cache. Default is a new MemoryCache.
func WithCache(c scope.Cache) Option {
	return func(s *Styler) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithMatcher sets selector matcher. Default is an empty stylesheet.
func WithMatcher(m Matcher) Option {
	return func(s *Styler) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithMerge sets style merge function. Default is css.Merge.
func WithMerge(f MergeFunc) Option {
	return func(s *Styler) {
		if f != nil {
			s.merge = f
		}
	}
}

// WithNative turns styler into identity: Wrap returns wrapped components and
// Annotate returns its input. Use when selectors are resolved by the host.
func WithNative(native bool) Option {
	return func(s *Styler) {
		s.native = native
	}
}

// WithLogger sets logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Styler) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates Styler.
func New(opts ...Option) *Styler {
	s := &Styler{
		log:   zap.NewNop(),
		merge: css.Merge,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("styler")
	if s.cache == nil {
		s.cache = scope.NewMemoryCache()
	}
	if s.matcher == nil {
		s.matcher = css.NewSheet(s.log)
	}
	return s
}

// Native reports whether styler works in passthrough mode.
func (s *Styler) Native() bool {
	return s.native
}

// Cache returns path cache shared by proxies of this styler.
func (s *Styler) Cache() scope.Cache {
	return s.cache
}

// Wrap returns component which resolves style for inner. Name is used as
// element name in selectors, case insensitive. All props are forwarded to
// inner, "style" is replaced with resolved style (css.Style). In native mode
// inner is returned as is.
func (s *Styler) Wrap(name string, inner host.Component) host.Component {
	if s.native {
		return inner
	}
	return &Component{styler: s, name: name, inner: inner}
}

// Annotate marks items with their position among siblings: firstChild,
// lastChild and 1-based nthChild props. Items without a key get their
// 0-based index as key. Input is not modified. In native mode items are
// returned unchanged.
func (s *Styler) Annotate(items ...host.Element) []host.Element {
	if s.native {
		return items
	}
	out := make([]host.Element, len(items))
	for i, item := range items {
		props := item.Props.Clone()
		props[PropFirstChild] = i == 0
		props[PropLastChild] = i == len(items)-1
		props[PropNthChild] = i + 1
		item.Props = props
		if item.Key == "" {
			item.Key = strconv.Itoa(i)
		}
		out[i] = item
	}
	return out
}

// Component is a styled proxy created by Styler.Wrap.
type Component struct {
	styler *Styler
	name   string
	inner  host.Component
}

// Name returns name given to Wrap.
func (c *Component) Name() string {
	return c.name
}

// Unwrap returns wrapped component.
func (c *Component) Unwrap() host.Component {
	return c.inner
}

// Mount creates node state for a new instance.
func (c *Component) Mount() host.Instance {
	return &node{
		styler:  c.styler,
		element: c.name,
		inner:   c.inner,
	}
}
