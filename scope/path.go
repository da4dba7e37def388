package scope

import (
	"strconv"
	"strings"
)

// Path is an ordered chain of descriptors from the synthetic root to the
// node, inclusive. Paths stored in a Cache are shared between nodes and must
// be treated as read-only.
type Path []Descriptor

// Append returns new path with d added at the end. Receiver is never modified
// even when it has spare capacity.
func (p Path) Append(d Descriptor) Path {
	np := make(Path, len(p), len(p)+1)
	copy(np, p)
	return append(np, d)
}

// Node returns the last descriptor of the path.
func (p Path) Node() (Descriptor, bool) {
	if len(p) == 0 {
		return Descriptor{}, false
	}
	return p[len(p)-1], true
}

// String returns CSS-like path, for example "root > view.card > text.title:first-child".
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, d := range p {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " > ")
}

// Key derives path key of a node from the key of its parent and its own
// descriptor. Two nodes with the same ancestry and descriptors always get the
// same key:
//
//	parentKey ">" element "." classes... ":" index ":" first ":" last
//
// Unset index and false flags are encoded as empty strings.
func Key(parentKey string, d Descriptor) string {
	var sb strings.Builder
	sb.Grow(len(parentKey) + len(d.Element) + 16)
	sb.WriteString(parentKey)
	sb.WriteByte('>')
	sb.WriteString(d.Element)
	sb.WriteByte('.')
	sb.WriteString(strings.Join(d.Classes, "."))
	sb.WriteByte(':')
	if d.Index > 0 {
		sb.WriteString(strconv.Itoa(d.Index))
	}
	sb.WriteByte(':')
	if d.First {
		sb.WriteString("true")
	}
	sb.WriteByte(':')
	if d.Last {
		sb.WriteString("true")
	}
	return sb.String()
}

// Context is what a node publishes to its descendants: its path and key.
// Zero value stands for "no participating ancestor".
type Context struct {
	Path Path
	Key  string
}

// RootContext returns context of a node without participating ancestors.
func RootContext() Context {
	return Context{Path: Path{Root}}
}

// OrRoot returns c, or the root context when c carries no path.
func (c Context) OrRoot() Context {
	if len(c.Path) == 0 {
		return RootContext()
	}
	return c
}

// IsZero reports whether context was never set.
func (c Context) IsZero() bool {
	return len(c.Path) == 0 && c.Key == ""
}

// Build computes context of a node with descriptor d under parent. When cache
// already holds a path for the resulting key that path is returned as is,
// otherwise parent path is copied, extended and stored. Concurrent builders of
// the same key all get the instance stored first.
func Build(cache Cache, parent Context, d Descriptor) Context {
	parent = parent.OrRoot()
	key := Key(parent.Key, d)
	if p, ok := cache.Get(key); ok {
		return Context{Path: p, Key: key}
	}
	p := cache.Put(key, parent.Path.Append(d))
	return Context{Path: p, Key: key}
}
