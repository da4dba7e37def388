// Package resolve implements ncss subcommands: it loads stylesheets and markup,
// renders component tree through styled proxies and reports the result.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ncss/config"
	"ncss/css"
	jsenv "ncss/env"
	"ncss/host"
	"ncss/markup"
	"ncss/preview"
	"ncss/proxy"
	"ncss/scope"
	"ncss/state"
)

// options are common to resolve and preview.
type options struct {
	source   string
	sheets   []string
	native   string
	passes   int
	metrics  bool
	template string
}

func commonOptions(env *state.LocalEnv, cmd *cli.Command) (*options, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return nil, errors.New("no markup source has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}

	opts := &options{
		source:   src,
		sheets:   append(slices.Clone(env.Cfg.Styling.Stylesheets), cmd.StringSlice("css")...),
		native:   env.Cfg.Styling.Native,
		passes:   env.Cfg.Output.Passes,
		metrics:  env.Cfg.Styling.Metrics,
		template: env.Cfg.Output.Template,
	}
	if cmd.IsSet("native") {
		opts.native = cmd.String("native")
	}
	return opts, nil
}

// Run is the action of "resolve" subcommand.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger().Named("resolve")

	opts, err := commonOptions(env, cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	if cmd.IsSet("passes") {
		opts.passes = cmd.Int("passes")
	}
	if cmd.IsSet("metrics") {
		opts.metrics = cmd.Bool("metrics")
	}
	if cmd.IsSet("template") {
		opts.template = cmd.String("template")
	}
	if opts.passes < 1 {
		return fmt.Errorf("number of passes must be positive, got %d", opts.passes)
	}

	log.Info("Resolving starting", zap.String("source", opts.source), zap.Strings("stylesheets", opts.sheets))
	defer func(start time.Time) {
		log.Info("Resolving completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return resolve(ctx, env, opts, cmd.Root().Writer, log)
}

// resolve renders markup and writes every view through output template.
func resolve(ctx context.Context, env *state.LocalEnv, opts *options, w io.Writer, log *zap.Logger) error {
	out, err := newOutput(opts.template)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, env, opts, log)
	if err != nil {
		return err
	}

	var buf strings.Builder
	if err := out.write(&buf, s.view, s.paths); err != nil {
		return err
	}
	if opts.metrics {
		if err := writeMetrics(&buf, env); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, buf.String()); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	env.Rpt.StoreData("output.txt", []byte(buf.String()))
	return nil
}

// Preview is the action of "preview" subcommand.
func Preview(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger().Named("preview")

	opts, err := commonOptions(env, cmd)
	if err != nil {
		return err
	}
	popts := preview.Options{
		Width:  env.Cfg.Output.Preview.Width,
		Height: env.Cfg.Output.Preview.Height,
		Scale:  env.Cfg.Output.Preview.Scale,
	}
	if cmd.IsSet("width") {
		popts.Width = cmd.Int("width")
	}
	if cmd.IsSet("height") {
		popts.Height = cmd.Int("height")
	}
	if cmd.IsSet("scale") {
		popts.Scale = cmd.Float("scale")
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = preview.OutputName(opts.source)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	log.Info("Preview starting", zap.String("source", opts.source), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Preview completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return previewTo(ctx, env, opts, popts, dst, log)
}

func previewTo(ctx context.Context, env *state.LocalEnv, opts *options, popts preview.Options, dst string, log *zap.Logger) (err error) {
	s, err := newSession(ctx, env, opts, log)
	if err != nil {
		return err
	}
	img, err := preview.Render(s.view, popts, log)
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create preview file '%s': %w", dst, err)
	}
	defer func() {
		if er := f.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close preview file: %w", er))
		}
	}()

	if err := preview.WritePNG(f, img); err != nil {
		return err
	}
	env.Rpt.Store(filepath.Base(dst), dst)
	return nil
}

// Probe is the action of "probe" subcommand.
func Probe(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Logger().Named("probe")

	script := cmd.Args().Get(0)
	if len(script) == 0 {
		script = env.Cfg.Styling.ProbeScript
	}
	native, err := probe(script)
	if err != nil {
		return err
	}
	log.Info("Environment probed", zap.String("script", script), zap.Bool("native", native))

	answer := "no"
	if native {
		answer = "yes"
	}
	if _, err := fmt.Fprintf(cmd.Root().Writer, "native selectors: %s\n", answer); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

func readScript(path string) (string, error) {
	if len(path) == 0 {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read environment script: %w", err)
	}
	return string(data), nil
}

func probe(path string) (bool, error) {
	setup, err := readScript(path)
	if err != nil {
		return false, err
	}
	return jsenv.Probe(setup)
}

// session is a rendered tree with everything used to produce it.
type session struct {
	sheet    *css.Sheet
	paths    *scope.MemoryCache
	styler   *proxy.Styler
	loader   *markup.Loader
	renderer *host.Renderer
	doc      *markup.Document
	view     *host.View
}

func newSession(ctx context.Context, env *state.LocalEnv, opts *options, log *zap.Logger) (*session, error) {
	setup, err := readScript(env.Cfg.Styling.ProbeScript)
	if err != nil {
		return nil, err
	}
	native, err := jsenv.Detect(opts.native, setup, log)
	if err != nil {
		return nil, fmt.Errorf("unable to detect native selectors: %w", err)
	}

	parser := css.NewParser(log)
	sheets, err := loadStylesheets(parser, opts.sheets, env.Rpt, log)
	if err != nil {
		return nil, err
	}

	s := &session{
		sheet: css.NewSheet(log, sheets...),
		paths: scope.NewMemoryCache(),
	}

	var cache scope.Cache = s.paths
	if opts.metrics {
		if cache, err = scope.NewInstrumentedCache(s.paths, env.Metrics); err != nil {
			return nil, err
		}
	}

	s.styler = proxy.New(
		proxy.WithCache(cache),
		proxy.WithMatcher(s.sheet),
		proxy.WithNative(native),
		proxy.WithLogger(log),
	)
	s.loader = markup.NewLoader(s.styler, log)
	if s.doc, err = s.loader.LoadFile(opts.source); err != nil {
		return nil, err
	}
	env.Rpt.Store("input/"+filepath.Base(opts.source), opts.source)

	for i, text := range s.doc.Styles {
		name := fmt.Sprintf("%s <style> #%d", filepath.Base(opts.source), i+1)
		sheet := parser.Parse([]byte(text), name)
		logWarnings(log, name, sheet)
		s.sheet.Add(sheet)
	}
	log.Debug("Styling prepared", zap.Bool("native", native), zap.Int("rules", s.sheet.Len()), zap.Strings("components", s.loader.Tags()))

	s.renderer = host.NewRenderer(log)
	for range opts.passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.view = s.renderer.Render(s.doc.Root)
	}
	if s.view == nil {
		return nil, fmt.Errorf("markup '%s' rendered nothing", opts.source)
	}

	log.Debug("Tree rendered",
		zap.Int("passes", s.renderer.Passes()),
		zap.Int("instances", s.renderer.Mounted()),
		zap.Int("views", s.view.Count()),
		zap.Int("paths", s.paths.Len()))

	env.Rpt.StoreData("cache/keys.txt", []byte(strings.Join(s.paths.Keys(), "\n")))
	return s, nil
}

// loadStylesheets reads and parses all files, reporting every unreadable one.
func loadStylesheets(parser *css.Parser, files []string, rpt *config.Report, log *zap.Logger) ([]*css.Stylesheet, error) {
	var (
		errs   error
		sheets = make([]*css.Stylesheet, 0, len(files))
	)
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to read stylesheet: %w", err))
			continue
		}
		sheet := parser.Parse(data, name)
		logWarnings(log, name, sheet)
		if err := rpt.StoreCopy("css/"+filepath.Base(name), name); err != nil {
			log.Warn("Unable to store stylesheet in report", zap.String("file", name), zap.Error(err))
		}
		sheets = append(sheets, sheet)
	}
	if errs != nil {
		return nil, errs
	}
	return sheets, nil
}

func logWarnings(log *zap.Logger, name string, sheet *css.Stylesheet) {
	for _, w := range sheet.Warnings {
		log.Warn("Stylesheet problem", zap.String("file", name), zap.String("warning", w))
	}
}
