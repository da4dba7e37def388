// Package preview draws resolved view trees as nested boxes, a quick way to
// see which styles ended up on which node.
package preview

import (
	"ncss/css"
	"ncss/host"
	"ncss/proxy"
)

const (
	defaultPadding = 4
	lineHeight     = 17 // basicfont 7x13 plus leading
)

// Box is a laid out view.
type Box struct {
	View     *host.View
	Style    css.Style
	X, Y     float64
	W, H     float64
	Padding  float64
	Children []*Box
}

// StyleOf returns resolved style of a view, empty when it has none.
func StyleOf(v *host.View) css.Style {
	if st, ok := css.StyleOf(v.Props[proxy.PropStyle]); ok && st != nil {
		return st
	}
	return css.Style{}
}

// Layout stacks views vertically inside width. Margin, padding, width and
// height in px are honored, everything else is ignored.
func Layout(v *host.View, width float64) *Box {
	if v == nil {
		return nil
	}
	b, _ := layout(v, 0, 0, width)
	return b
}

// layout returns box and its outer height including margins.
func layout(v *host.View, x, y, avail float64) (*Box, float64) {
	st := StyleOf(v)
	margin := length(st, "margin", 0)
	padding := length(st, "padding", defaultPadding)

	b := &Box{
		View:    v,
		Style:   st,
		X:       x + margin,
		Y:       y + margin,
		W:       max(avail-2*margin, 0),
		Padding: padding,
	}
	if w, ok := st.Length("width"); ok && w < b.W {
		b.W = w
	}

	cy := b.Y + padding + lineHeight
	for _, c := range v.Children {
		cb, h := layout(c, b.X+padding, cy, b.W-2*padding)
		b.Children = append(b.Children, cb)
		cy += h
	}
	b.H = cy + padding - b.Y
	if h, ok := st.Length("height"); ok && h > b.H {
		b.H = h
	}
	return b, b.H + 2*margin
}

func length(st css.Style, prop string, def float64) float64 {
	if v, ok := st.Length(prop); ok {
		return v
	}
	return def
}

// Walk visits box and its descendants depth first.
func (b *Box) Walk(fn func(*Box)) {
	if b == nil {
		return
	}
	fn(b)
	for _, c := range b.Children {
		c.Walk(fn)
	}
}

// Label returns text drawn in the box: text prop or tag with classes.
func (b *Box) Label() string {
	if text := b.View.Props.String("text"); text != "" {
		return text
	}
	label := b.View.Tag
	if cls := b.View.Props.String(proxy.PropClassName); cls != "" {
		label += " ." + cls
	}
	return label
}
