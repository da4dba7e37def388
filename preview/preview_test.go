package preview_test

import (
	"bytes"
	"image/png"
	"testing"

	"ncss/css"
	"ncss/host"
	"ncss/preview"
	"ncss/proxy"
)

func styled(tag, style string, children ...*host.View) *host.View {
	return &host.View{
		Tag:      tag,
		Props:    host.Props{proxy.PropStyle: css.ParseInline(style)},
		Children: children,
	}
}

func TestLayout(t *testing.T) {
	root := styled("view", "padding: 10px; height: 200px",
		styled("text", "margin: 5px; padding: 0"),
		styled("text", "width: 50px"),
	)

	b := preview.Layout(root, 300)
	if b.W != 300 || b.H != 200 {
		t.Errorf("root box %vx%v, want 300x200", b.W, b.H)
	}
	if len(b.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(b.Children))
	}

	first := b.Children[0]
	if first.X != 15 || first.W != 270 {
		t.Errorf("first box x=%v w=%v, want x=15 w=270", first.X, first.W)
	}
	if first.Y != 10+17+5 {
		t.Errorf("first box y=%v, want %v", first.Y, 10+17+5)
	}
	second := b.Children[1]
	if second.W != 50 {
		t.Errorf("second box w=%v, want 50", second.W)
	}
	if second.Y != first.Y+first.H+5 {
		t.Errorf("second box y=%v, want %v", second.Y, first.Y+first.H+5)
	}

	n := 0
	b.Walk(func(*preview.Box) { n++ })
	if n != 3 {
		t.Errorf("Walk visited %d boxes, want 3", n)
	}
	if preview.Layout(nil, 100) != nil {
		t.Error("Layout(nil) must be nil")
	}
}

func TestLabel(t *testing.T) {
	b := preview.Layout(&host.View{Tag: "text", Props: host.Props{proxy.PropClassName: "a b"}}, 100)
	if b.Label() != "text .a b" {
		t.Errorf("Label() = %q", b.Label())
	}
	b = preview.Layout(&host.View{Tag: "text", Props: host.Props{"text": "hi"}}, 100)
	if b.Label() != "hi" {
		t.Errorf("Label() = %q", b.Label())
	}
}

func TestRender(t *testing.T) {
	root := styled("view", "background-color: #ff0000; height: 60px; border-width: 0")

	img, err := preview.Render(root, preview.Options{Width: 100}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 60 {
		t.Fatalf("image %v, want 100x60", img.Bounds())
	}
	r, g, b, _ := img.At(95, 55).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("pixel = %d,%d,%d, want red", r>>8, g>>8, b>>8)
	}

	scaled, err := preview.Render(root, preview.Options{Width: 100, Height: 40, Scale: 2}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if scaled.Bounds().Dx() != 200 || scaled.Bounds().Dy() != 80 {
		t.Errorf("scaled image %v, want 200x80", scaled.Bounds())
	}

	if _, err := preview.Render(nil, preview.Options{Width: 100}, nil); err == nil {
		t.Error("expected error for nil view")
	}
	if _, err := preview.Render(root, preview.Options{}, nil); err == nil {
		t.Error("expected error for zero width")
	}

	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, img); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("decoded bounds %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"/tmp/My Tree.xml": "my-tree.png",
		"card.xml":         "card.png",
		"---.xml":          "preview.png",
	}
	for in, want := range tests {
		if got := preview.OutputName(in); got != want {
			t.Errorf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
}
