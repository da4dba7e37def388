package resolve

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"ncss/config"
	"ncss/preview"
	"ncss/state"
)

const sampleMarkup = `<card class="main">
  <style>
    text { color: red; }
    text:first-child { color: blue; }
  </style>
  <text class="title">Hello</text>
  <text>World</text>
</card>
`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testOptions(env *state.LocalEnv, source string) *options {
	return &options{
		source:   source,
		native:   "off",
		passes:   1,
		template: env.Cfg.Output.Template,
	}
}

func TestResolve_Output(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeFile(t, t.TempDir(), "card.xml", sampleMarkup)

	opts := testOptions(env, src)
	opts.template = "{{ .Depth }}|{{ .Path }}|{{ .Style }}|{{ .Text }}"

	var out bytes.Buffer
	if err := resolve(ctx, env, opts, &out, env.Log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}

	want := []string{
		"0|root > card.main||",
		"1|root > card.main > text.title:nth-child(1):first-child|color: blue|Hello",
		"1|root > card.main > text:nth-child(2):last-child|color: red|World",
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestResolve_DefaultTemplate(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeFile(t, t.TempDir(), "card.xml", sampleMarkup)

	var out bytes.Buffer
	if err := resolve(ctx, env, testOptions(env, src), &out, env.Log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if !strings.Contains(out.String(), "  root > card.main > text.title:nth-child(1):first-child { color: blue }") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestResolve_StylesheetFiles(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, dir, "card.xml", `<card><text/></card>`)
	base := writeFile(t, dir, "base.css", `card text { margin: 2px; color: black; }`)
	theme := writeFile(t, dir, "theme.css", `card > text { color: white; }`)

	opts := testOptions(env, src)
	opts.sheets = []string{base, theme}
	opts.template = "{{ .Tag }} {{ .Style }}"

	var out bytes.Buffer
	if err := resolve(ctx, env, opts, &out, env.Log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if !strings.Contains(out.String(), "text color: white; margin: 2px") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestResolve_DocumentStyleWarnings(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeFile(t, t.TempDir(), "card.xml", `<card>
  <style>
    @media print { text { color: red; } }
    text { color: blue; }
  </style>
  <text>Hello</text>
</card>`)

	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	opts := testOptions(env, src)
	opts.template = "{{ .Tag }} {{ .Style }}"

	var out bytes.Buffer
	if err := resolve(ctx, env, opts, &out, log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if !strings.Contains(out.String(), "text color: blue") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	warnings := logs.FilterMessage("Stylesheet problem").All()
	if len(warnings) != 1 {
		t.Fatalf("got %d stylesheet warnings, want 1", len(warnings))
	}
	if file := warnings[0].ContextMap()["file"]; file != "card.xml <style> #1" {
		t.Errorf("warning file = %v, want card.xml <style> #1", file)
	}
}

func TestResolve_MissingStylesheets(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, dir, "card.xml", `<card/>`)

	opts := testOptions(env, src)
	opts.sheets = []string{filepath.Join(dir, "a.css"), filepath.Join(dir, "b.css")}

	err := resolve(ctx, env, opts, &bytes.Buffer{}, env.Log)
	if err == nil {
		t.Fatal("expected error for missing stylesheets")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected both missing files reported, got %d: %v", n, err)
	}
}

func TestResolve_Metrics(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeFile(t, t.TempDir(), "card.xml", sampleMarkup)

	opts := testOptions(env, src)
	opts.passes = 3
	opts.metrics = true

	var out bytes.Buffer
	if err := resolve(ctx, env, opts, &out, env.Log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	// later passes do not touch cache, props did not change
	for _, want := range []string{
		"# ncss_path_cache_entries 3",
		"# ncss_path_cache_hits_total 0",
		"# ncss_path_cache_misses_total 3",
		"# ncss_path_cache_stores_total 3",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestResolve_Native(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeFile(t, t.TempDir(), "card.xml", sampleMarkup)

	opts := testOptions(env, src)
	opts.native = "on"
	opts.template = "{{ .Path }}|{{ .Style }}"

	var out bytes.Buffer
	if err := resolve(ctx, env, opts, &out, env.Log); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	// no position annotation and no resolved style
	if !strings.Contains(out.String(), "root > card.main > text.title|\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if strings.Contains(out.String(), "color") {
		t.Errorf("native mode must not resolve styles:\n%s", out.String())
	}
}

func TestResolve_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, dir, "card.xml", sampleMarkup)

	t.Run("bad template", func(t *testing.T) {
		opts := testOptions(env, src)
		opts.template = "{{ .Path"
		if err := resolve(ctx, env, opts, &bytes.Buffer{}, env.Log); err == nil {
			t.Error("expected template error")
		}
	})

	t.Run("missing markup", func(t *testing.T) {
		opts := testOptions(env, filepath.Join(dir, "none.xml"))
		if err := resolve(ctx, env, opts, &bytes.Buffer{}, env.Log); err == nil {
			t.Error("expected error for missing markup")
		}
	})

	t.Run("bad native mode", func(t *testing.T) {
		opts := testOptions(env, src)
		opts.native = "sometimes"
		if err := resolve(ctx, env, opts, &bytes.Buffer{}, env.Log); err == nil {
			t.Error("expected error for unknown mode")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := resolve(cctx, env, testOptions(env, src), &bytes.Buffer{}, env.Log); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestPreview_WritesPNG(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, dir, "card.xml", `<card style="background-color: #eee; padding: 8px">
  <text style="color: navy">Hello</text>
</card>`)
	dst := filepath.Join(dir, preview.OutputName(src))

	popts := preview.Options{Width: 200, Scale: 0.5}
	if err := previewTo(ctx, env, testOptions(env, src), popts, dst, env.Log); err != nil {
		t.Fatalf("previewTo() error = %v", err)
	}

	img, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("unable to open preview: %v", err)
	}
	if w := img.Bounds().Dx(); w != 100 {
		t.Errorf("preview width = %d, want 100", w)
	}
	if filepath.Base(dst) != "card.png" {
		t.Errorf("preview name = %q, want card.png", filepath.Base(dst))
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	dom := writeFile(t, dir, "dom.js", `var window = { document: { getElementById: function(id) { return null; } } };`)
	bare := writeFile(t, dir, "bare.js", `var window = {};`)
	broken := writeFile(t, dir, "broken.js", `throw new Error("boom");`)

	tests := []struct {
		name    string
		script  string
		want    bool
		wantErr bool
	}{
		{"no script", "", false, false},
		{"dom", dom, true, false},
		{"no document", bare, false, false},
		{"broken script", broken, false, true},
		{"missing script", filepath.Join(dir, "none.js"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := probe(tt.script)
			if (err != nil) != tt.wantErr {
				t.Fatalf("probe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("probe() = %v, want %v", got, tt.want)
			}
		})
	}
}
