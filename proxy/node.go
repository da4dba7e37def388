package proxy

import (
	"go.uber.org/zap"

	"ncss/css"
	"ncss/host"
	"ncss/scope"
)

// node is the state of a mounted styled proxy. Path, key and style are
// derived from props and parent context, they are recomputed only when props
// shallow-differ from the previous render or the parent key changed.
type node struct {
	styler  *Styler
	element string
	inner   host.Component

	rendered  bool
	lastProps host.Props
	parentKey string
	ctx       scope.Context

	// matched is valid for matchedKey, merged for current props
	matchedKey string
	matched    css.Style
	hasMatched bool
	merged     css.Style
	hasMerged  bool
}

// Describe builds path node of element from its props: className,
// firstChild, lastChild and nthChild.
func Describe(element string, props host.Props) scope.Descriptor {
	index, _ := props.Int(PropNthChild)
	return scope.NewDescriptor(element, props[PropClassName], index,
		props.Bool(PropFirstChild), props.Bool(PropLastChild))
}

// recompute returns context of a node with given props under parent. Cached
// context is returned when the key did not change.
func recompute(cache scope.Cache, prev scope.Context, parent scope.Context, element string, props host.Props) scope.Context {
	d := Describe(element, props)
	if key := scope.Key(parent.Key, d); key == prev.Key && len(prev.Path) > 0 {
		return prev
	}
	return scope.Build(cache, parent, d)
}

// Render updates node state and renders inner component with resolved style.
// Context published to descendants is the node's own path and key.
func (n *node) Render(ctx scope.Context, props host.Props, children []host.Element) (host.Element, scope.Context) {
	parent := ctx.OrRoot()
	if !n.rendered || parent.Key != n.parentKey || !ShallowEqual(n.lastProps, props) {
		next := recompute(n.styler.cache, n.ctx, parent, n.element, props)
		if next.Key != n.ctx.Key {
			n.styler.log.Debug("Path changed", zap.String("element", n.element), zap.String("key", next.Key))
		}
		n.ctx = next
		n.parentKey = parent.Key
		n.lastProps = props
		n.hasMerged = false
		n.rendered = true
	}

	out := props.Clone()
	out[PropStyle] = n.style(props)
	return host.Element{Type: n.inner, Props: out, Children: children}, n.ctx
}

// style returns memoized style, calling matcher only when path key changed
// since the last match.
func (n *node) style(props host.Props) css.Style {
	if !n.hasMatched || n.matchedKey != n.ctx.Key {
		n.matched = n.styler.matcher.Match(n.ctx.Path, n.ctx.Key)
		n.matchedKey = n.ctx.Key
		n.hasMatched = true
		n.hasMerged = false
	}
	if !n.hasMerged {
		n.merged = n.matched
		if inline, ok := css.StyleOf(props[PropStyle]); ok {
			n.merged = n.styler.merge(n.matched, inline)
		}
		n.hasMerged = true
	}
	return n.merged
}
