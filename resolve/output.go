package resolve

import (
	"fmt"
	"io"
	"slices"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"ncss/css"
	"ncss/host"
	"ncss/markup"
	"ncss/preview"
	"ncss/proxy"
	"ncss/scope"
	"ncss/state"
)

// Values is a struct that holds variables we make available for output
// template expansion, one per rendered view.
type Values struct {
	Depth   int
	Tag     string
	Key     string
	Path    string // e.g. "root > card.main > text:first-child"
	PathKey string
	Text    string
	Style   css.Style
	Props   map[string]string // everything except style and text
}

type output struct {
	tmpl *template.Template
}

func newOutput(text string) (*output, error) {
	tmpl, err := template.New("output").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse output template: %w", err)
	}
	return &output{tmpl: tmpl}, nil
}

// values walks view tree collecting template values. Paths are rebuilt from
// view props through cache, so for a styled tree they are the same paths
// proxies computed during render.
func values(root *host.View, cache scope.Cache) []Values {
	var (
		result []Values
		stack  = []scope.Context{scope.RootContext()}
	)
	root.Walk(func(v *host.View, depth int) bool {
		stack = stack[:depth+1]
		ctx := scope.Build(cache, stack[depth], proxy.Describe(v.Tag, v.Props))
		stack = append(stack, ctx)

		props := make(map[string]string, len(v.Props))
		for name, val := range v.Props {
			if name == proxy.PropStyle || name == markup.PropText {
				continue
			}
			props[name] = fmt.Sprint(val)
		}
		result = append(result, Values{
			Depth:   depth,
			Tag:     v.Tag,
			Key:     v.Key,
			Path:    ctx.Path.String(),
			PathKey: ctx.Key,
			Text:    v.Props.String(markup.PropText),
			Style:   preview.StyleOf(v),
			Props:   props,
		})
		return true
	})
	return result
}

func (o *output) write(w io.Writer, root *host.View, cache scope.Cache) error {
	for _, v := range values(root, cache) {
		if err := o.tmpl.Execute(w, v); err != nil {
			return fmt.Errorf("unable to expand output template for '%s': %w", v.Path, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeMetrics prints gathered metrics sorted by name, one "name value" line
// per series.
func writeMetrics(w io.Writer, env *state.LocalEnv) error {
	mfs, err := env.Metrics.Gather()
	if err != nil {
		return fmt.Errorf("unable to gather metrics: %w", err)
	}
	lines := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", mf.GetName(), m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", mf.GetName(), m.GetGauge().GetValue()))
			}
		}
	}
	slices.Sort(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "# %s\n", l); err != nil {
			return err
		}
	}
	return nil
}

