package proxy_test

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"ncss/css"
	"ncss/host"
	"ncss/proxy"
	"ncss/scope"
)

// recorder is a matcher remembering every call.
type recorder struct {
	paths []scope.Path
	keys  []string
}

func (r *recorder) Match(path scope.Path, key string) css.Style {
	r.paths = append(r.paths, path)
	r.keys = append(r.keys, key)
	d, _ := path.Node()
	return css.Style{"element": {Raw: d.Element, Keyword: d.Element}}
}

func (r *recorder) calls() int {
	return len(r.keys)
}

func sameStyle(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func styleOf(t *testing.T, v *host.View) css.Style {
	t.Helper()
	st, ok := v.Props[proxy.PropStyle].(css.Style)
	if !ok {
		t.Fatalf("view %s has no resolved style: %#v", v.Tag, v.Props[proxy.PropStyle])
	}
	return st
}

func TestStyler_Invalidation(t *testing.T) {
	m := &recorder{}
	s := proxy.New(proxy.WithMatcher(m), proxy.WithLogger(zap.NewNop()))
	text := s.Wrap("Text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	props := host.Props{proxy.PropClassName: "title"}
	first := styleOf(t, r.Render(host.New(text, props)))
	if m.calls() != 1 {
		t.Fatalf("matcher calls = %d, want 1", m.calls())
	}
	if m.keys[0] != ">text.title:::" {
		t.Errorf("key = %q, want %q", m.keys[0], ">text.title:::")
	}

	// same props
	second := styleOf(t, r.Render(host.New(text, props)))
	// shallow-equal props
	third := styleOf(t, r.Render(host.New(text, host.Props{proxy.PropClassName: "title"})))
	if m.calls() != 1 {
		t.Errorf("matcher calls = %d after shallow-equal renders, want 1", m.calls())
	}
	if !sameStyle(first, second) || !sameStyle(first, third) {
		t.Error("style must be reused while props are shallow-equal")
	}

	r.Render(host.New(text, host.Props{proxy.PropClassName: []any{"title", "big"}}))
	if m.calls() != 2 {
		t.Fatalf("matcher calls = %d after className change, want 2", m.calls())
	}
	if m.keys[1] != ">text.title.big:::" {
		t.Errorf("key = %q, want %q", m.keys[1], ">text.title.big:::")
	}
}

func TestStyler_RerenderUncomparableProps(t *testing.T) {
	type payload struct{ Data any }

	m := &recorder{}
	s := proxy.New(proxy.WithMatcher(m), proxy.WithLogger(zap.NewNop()))
	text := s.Wrap("Text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	props := host.Props{"payload": payload{Data: []int{1}}}
	for range 3 {
		r.Render(host.New(text, props))
	}
	// key never changes, matcher runs once whatever props comparison says
	if m.calls() != 1 {
		t.Errorf("matcher calls = %d, want 1", m.calls())
	}
}

func TestStyler_InlineStyle(t *testing.T) {
	m := &recorder{}
	s := proxy.New(proxy.WithMatcher(m))
	text := s.Wrap("text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	st := styleOf(t, r.Render(host.New(text, host.Props{proxy.PropStyle: "color: red"})))
	if st["color"].Keyword != "red" || st["element"].Keyword != "text" {
		t.Errorf("unexpected merged style %v", st)
	}

	st = styleOf(t, r.Render(host.New(text, host.Props{proxy.PropStyle: "color: blue"})))
	if st["color"].Keyword != "blue" {
		t.Errorf("color = %q, want blue", st["color"].Keyword)
	}
	if m.calls() != 1 {
		t.Errorf("matcher calls = %d, want 1: inline style does not affect path", m.calls())
	}

	st = styleOf(t, r.Render(host.New(text, host.Props{proxy.PropStyle: map[string]any{"element": "override"}})))
	if st["element"].Raw != "override" {
		t.Errorf("inline style must override matched style, got %v", st)
	}
}

func TestStyler_CustomMerge(t *testing.T) {
	merges := 0
	s := proxy.New(proxy.WithMerge(func(base, override css.Style) css.Style {
		merges++
		return css.Merge(base, override)
	}))
	text := s.Wrap("text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	props := host.Props{proxy.PropStyle: css.Style{"color": {Raw: "red", Keyword: "red"}}}
	r.Render(host.New(text, props))
	r.Render(host.New(text, props))
	if merges != 1 {
		t.Errorf("merges = %d, want 1", merges)
	}
	r.Render(host.New(text, nil))
	if merges != 1 {
		t.Errorf("merges = %d, want 1: nothing to merge without inline style", merges)
	}
}

func TestStyler_ForwardsProps(t *testing.T) {
	s := proxy.New()
	text := s.Wrap("text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	props := host.Props{"text": "hello", proxy.PropClassName: "a", proxy.PropStyle: "color: red"}
	v := r.Render(host.New(text, props))
	if v.Tag != "text" || v.Props.String("text") != "hello" || v.Props.String(proxy.PropClassName) != "a" {
		t.Errorf("props not forwarded: %v", v.Props)
	}
	if _, ok := v.Props[proxy.PropStyle].(css.Style); !ok {
		t.Errorf("style not replaced: %#v", v.Props[proxy.PropStyle])
	}
	if props[proxy.PropStyle] != "color: red" {
		t.Error("input props modified")
	}
}

func TestStyler_CacheIdentity(t *testing.T) {
	m := &recorder{}
	s := proxy.New(proxy.WithMatcher(m))
	card := s.Wrap("card", host.NewNative("view"))
	text := s.Wrap("text", host.NewNative("text"))

	tree := func() host.Element {
		return host.New(card, host.Props{proxy.PropClassName: "c"},
			s.Annotate(host.New(text, nil), host.New(text, nil))...)
	}
	r1 := host.NewRenderer(nil)
	r2 := host.NewRenderer(nil)
	r1.Render(tree())
	r2.Render(tree())

	if m.calls() != 6 {
		t.Fatalf("matcher calls = %d, want 6", m.calls())
	}
	for i := range 3 {
		a, b := m.paths[i], m.paths[i+3]
		if m.keys[i] != m.keys[i+3] {
			t.Errorf("keys differ: %q and %q", m.keys[i], m.keys[i+3])
		}
		if &a[0] != &b[0] {
			t.Errorf("path %q is not shared between instances", m.keys[i])
		}
	}

	// parent path is a prefix of children paths but never their storage
	parent, child := m.paths[0], m.paths[1]
	if len(parent) != 2 || len(child) != 3 {
		t.Fatalf("unexpected path lengths %d and %d", len(parent), len(child))
	}
	if &parent[0] == &child[0] {
		t.Error("child path must not alias parent path")
	}
	if s.Cache().Len() != 3 {
		t.Errorf("cache entries = %d, want 3", s.Cache().Len())
	}
}

func TestStyler_ParentChange(t *testing.T) {
	m := &recorder{}
	s := proxy.New(proxy.WithMatcher(m))
	card := s.Wrap("card", host.NewNative("view"))
	text := s.Wrap("text", host.NewNative("text"))
	r := host.NewRenderer(nil)

	child := host.New(text, host.Props{proxy.PropClassName: "t"})
	r.Render(host.New(card, host.Props{proxy.PropClassName: "a"}, child))
	r.Render(host.New(card, host.Props{proxy.PropClassName: "b"}, child))

	if m.calls() != 4 {
		t.Fatalf("matcher calls = %d, want 4", m.calls())
	}
	if want := ">card.b:::>text.t:::"; m.keys[3] != want {
		t.Errorf("child key = %q, want %q", m.keys[3], want)
	}
}

func TestStyler_Cascade(t *testing.T) {
	stylesheet := css.NewParser(nil).Parse([]byte(`
		card > text:first-child { color: red; }
		card text { color: blue; font-size: 12px; }
		.hot { color: orange; }
	`))
	s := proxy.New(proxy.WithMatcher(css.NewSheet(nil, stylesheet)))
	card := s.Wrap("Card", host.NewNative("view"))
	text := s.Wrap("Text", host.NewNative("text"))

	root := host.NewRenderer(nil).Render(host.New(card, nil, s.Annotate(
		host.New(text, nil),
		host.New(text, host.Props{proxy.PropClassName: "hot"}),
		host.New(text, nil),
	)...))

	want := []string{"red", "orange", "blue"}
	if len(root.Children) != len(want) {
		t.Fatalf("children = %d, want %d", len(root.Children), len(want))
	}
	for i, color := range want {
		st := styleOf(t, root.Children[i])
		if st["color"].Keyword != color {
			t.Errorf("child %d color = %q, want %q", i, st["color"].Keyword, color)
		}
		if v, ok := st.Length("font-size"); !ok || v != 12 {
			t.Errorf("child %d font-size = %v, want 12", i, v)
		}
	}
}

func TestStyler_Native(t *testing.T) {
	s := proxy.New(proxy.WithNative(true))
	inner := host.NewNative("text")

	if got := s.Wrap("text", inner); got != host.Component(inner) {
		t.Error("Wrap must return inner component in native mode")
	}
	items := []host.Element{host.New(inner, nil), host.New(inner, nil)}
	out := s.Annotate(items...)
	if len(out) != 2 || &out[0] != &items[0] {
		t.Error("Annotate must return input in native mode")
	}
	if out[0].Props != nil || out[0].Key != "" {
		t.Error("Annotate must not touch items in native mode")
	}
	if !s.Native() {
		t.Error("Native() = false, want true")
	}
}

func TestStyler_Annotate(t *testing.T) {
	s := proxy.New()
	text := host.NewNative("text")

	if out := s.Annotate(); len(out) != 0 {
		t.Errorf("Annotate() = %v, want empty", out)
	}

	one := s.Annotate(host.New(text, nil))
	if !one[0].Props.Bool(proxy.PropFirstChild) || !one[0].Props.Bool(proxy.PropLastChild) {
		t.Error("single item must be first and last")
	}
	if n, _ := one[0].Props.Int(proxy.PropNthChild); n != 1 {
		t.Errorf("nthChild = %d, want 1", n)
	}

	in := []host.Element{
		host.New(text, host.Props{"text": "a"}),
		host.New(text, nil).WithKey("b"),
		host.New(text, nil),
	}
	out := s.Annotate(in...)
	tests := []struct {
		first, last bool
		nth         int
		key         string
	}{
		{true, false, 1, "0"},
		{false, false, 2, "b"},
		{false, true, 3, "2"},
	}
	for i, tt := range tests {
		p := out[i].Props
		n, _ := p.Int(proxy.PropNthChild)
		if p.Bool(proxy.PropFirstChild) != tt.first || p.Bool(proxy.PropLastChild) != tt.last || n != tt.nth {
			t.Errorf("item %d annotated %v, want first=%v last=%v nth=%d", i, p, tt.first, tt.last, tt.nth)
		}
		if out[i].Key != tt.key {
			t.Errorf("item %d key = %q, want %q", i, out[i].Key, tt.key)
		}
	}
	if out[0].Props.String("text") != "a" {
		t.Error("existing props must be kept")
	}
	if _, ok := in[0].Props[proxy.PropFirstChild]; ok || in[0].Key != "" {
		t.Error("input items modified")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	s := proxy.New()
	inner := host.NewNative("text")
	c, ok := s.Wrap("Label", inner).(*proxy.Component)
	if !ok {
		t.Fatal("expected *proxy.Component")
	}
	if c.Name() != "Label" || c.Unwrap() != host.Component(inner) {
		t.Errorf("unexpected wrapper %q around %v", c.Name(), c.Unwrap())
	}
}

func TestShallowEqual(t *testing.T) {
	m := map[string]any{"a": 1}
	sl := []string{"x"}
	fn := func() {}
	stable := &fn
	type handler struct{ Data any }
	boxed := handler{Data: []int{1}}

	tests := []struct {
		name string
		a, b host.Props
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil and empty", nil, host.Props{}, true},
		{"scalars", host.Props{"a": 1, "b": "x"}, host.Props{"a": 1, "b": "x"}, true},
		{"different value", host.Props{"a": 1}, host.Props{"a": 2}, false},
		{"different type", host.Props{"a": 1}, host.Props{"a": int64(1)}, false},
		{"missing key", host.Props{"a": 1}, host.Props{"b": 1}, false},
		{"extra key", host.Props{"a": 1}, host.Props{"a": 1, "b": 2}, false},
		{"same map", host.Props{"m": m}, host.Props{"m": m}, true},
		{"equal maps", host.Props{"m": map[string]any{"a": 1}}, host.Props{"m": map[string]any{"a": 1}}, false},
		{"same slice", host.Props{"s": sl}, host.Props{"s": sl}, true},
		{"equal slices", host.Props{"s": []string{"x"}}, host.Props{"s": []string{"x"}}, false},
		{"functions", host.Props{"f": fn}, host.Props{"f": fn}, false},
		{"same function pointer", host.Props{"f": stable}, host.Props{"f": stable}, true},
		{"struct holding slice", host.Props{"h": boxed}, host.Props{"h": boxed}, false},
		{"struct holding scalar", host.Props{"h": handler{Data: 1}}, host.Props{"h": handler{Data: 1}}, true},
		{"nil values", host.Props{"n": nil}, host.Props{"n": nil}, true},
		{"nil and value", host.Props{"n": nil}, host.Props{"n": 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := proxy.ShallowEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ShallowEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	d := proxy.Describe("Text", host.Props{
		proxy.PropClassName:  []any{"title", []string{"big bold"}},
		proxy.PropNthChild:   "2",
		proxy.PropFirstChild: false,
		proxy.PropLastChild:  "true",
	})
	want := scope.Descriptor{Element: "text", Classes: []string{"title", "big", "bold"}, Index: 2, Last: true}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("Describe() = %+v, want %+v", d, want)
	}

	if d := proxy.Describe("view", nil); d.Index != 0 || len(d.Classes) != 0 || d.First || d.Last {
		t.Errorf("Describe() without props = %+v", d)
	}
}
