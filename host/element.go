// Package host is a minimal component-tree runtime. It mounts components,
// keeps their instances alive between renders and produces a tree of native
// views, passing ancestor context down explicitly.
package host

import (
	"maps"
	"strconv"

	"ncss/scope"
)

// Props are properties of an element. Values are arbitrary, interpretation is
// up to the component.
type Props map[string]any

// Clone returns shallow copy of props, never nil.
func (p Props) Clone() Props {
	out := make(Props, len(p)+4)
	maps.Copy(out, p)
	return out
}

// String returns property as string, "" when missing or not a string.
func (p Props) String(name string) string {
	switch v := p[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Int returns property as int. Numeric strings are accepted.
func (p Props) Int(name string) (int, bool) {
	switch v := p[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Bool returns property as bool, false when missing. String "true" is
// accepted.
func (p Props) Bool(name string) bool {
	switch v := p[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Component is a type of element. Implementations must be comparable (usually
// pointers): renderer reuses mounted instances when type and key of an
// element did not change.
type Component interface {
	Name() string
	Mount() Instance
}

// Instance is a mounted component. Render receives context published by the
// nearest ancestor, returns single element to render in its place and context
// for its descendants.
type Instance interface {
	Render(ctx scope.Context, props Props, children []Element) (Element, scope.Context)
}

// Element describes what to render.
type Element struct {
	Type     Component
	Key      string
	Props    Props
	Children []Element
}

// New creates element of type t.
func New(t Component, props Props, children ...Element) Element {
	return Element{Type: t, Props: props, Children: children}
}

// WithKey returns copy of element with key set.
func (e Element) WithKey(key string) Element {
	e.Key = key
	return e
}

// IsZero reports whether element renders nothing.
func (e Element) IsZero() bool {
	return e.Type == nil
}

// RenderFunc is a stateless composite component body.
type RenderFunc func(props Props, children []Element) Element

type funcComponent struct {
	name string
	fn   RenderFunc
}

// Func creates composite component from a render function. Context of the
// ancestors passes through it unchanged.
func Func(name string, fn RenderFunc) Component {
	return &funcComponent{name: name, fn: fn}
}

func (c *funcComponent) Name() string    { return c.name }
func (c *funcComponent) Mount() Instance { return c }

func (c *funcComponent) Render(ctx scope.Context, props Props, children []Element) (Element, scope.Context) {
	return c.fn(props, children), ctx
}

// Native is a host view component, the leaf of composition. Renderer turns
// native elements into Views and renders their children directly.
type Native struct {
	tag string
}

// NewNative creates native component for tag.
func NewNative(tag string) *Native {
	return &Native{tag: tag}
}

// Tag returns view tag.
func (n *Native) Tag() string     { return n.tag }
func (n *Native) Name() string    { return n.tag }
func (n *Native) Mount() Instance { return n }

// Render is not used by Renderer, native elements are expanded directly.
func (n *Native) Render(ctx scope.Context, _ Props, _ []Element) (Element, scope.Context) {
	return Element{}, ctx
}
