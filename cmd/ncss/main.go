package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ncss/config"
	jsenv "ncss/env"
	"ncss/misc"
	"ncss/resolve"
	"ncss/state"
)

// newApp builds command tree.
func newApp(lc *lifecycle) *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "CSS selector emulation for component trees",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          lc.before,
		After:           lc.after,
		OnUsageError:    onUsageErr,
		ExitErrHandler:  lc.onExitErr,
		CommandNotFound: onCommandNotFound,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "resolve",
				Usage:        "Resolves styles of every element in markup tree",
				OnUsageError: onUsageErr,
				Action:       resolve.Run,
				Flags: append(stylingFlags(),
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "output `TEMPLATE` executed for every element, overrides configuration"},
					&cli.IntFlag{Name: "passes", Aliases: []string{"p"}, Value: 1, Usage: "render tree `N` times through the same renderer"},
					&cli.BoolFlag{Name: "metrics", Aliases: []string{"m"}, Usage: "print path cache counters after the tree"},
				),
				ArgsUsage: "SOURCE",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to XML markup file, element tags become components, "class" attribute
    becomes className, "style" attribute is inline style and <style> elements
    are added to stylesheets

TEMPLATE:
    Go text/template with sprig functions, executed for every element with
        .Depth   nesting level, 0 for root
        .Tag     element name
        .Key     element key
        .Path    ancestry path, e.g. "root > card.main > text:first-child"
        .PathKey path cache key
        .Text    element text
        .Style   resolved style
        .Props   other properties
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "preview",
				Usage:        "Draws resolved markup tree as nested boxes (PNG)",
				OnUsageError: onUsageErr,
				Action:       resolve.Preview,
				Flags: append(stylingFlags(),
					&cli.IntFlag{Name: "width", Usage: "canvas width in pixels"},
					&cli.IntFlag{Name: "height", Usage: "canvas height in pixels, 0 fits content"},
					&cli.FloatFlag{Name: "scale", Usage: "scale final image by `FACTOR`"},
				),
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to XML markup file, see "resolve --help"

DESTINATION:
    PNG file to write, if absent - name is derived from SOURCE in current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "probe",
				Usage:        "Checks whether JavaScript environment resolves selectors natively",
				OnUsageError: onUsageErr,
				Action:       resolve.Probe,
				ArgsUsage:    "[SCRIPT]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SCRIPT:
    JavaScript file preparing environment, if absent - styling.probe_script from configuration
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: onUsageErr,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}
}

func main() {

	// allow graceful shutdown on interrupt, rendering checks context between
	// passes
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var (
		err error
		lc  lifecycle
	)
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !lc.handled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp(&lc).Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) (err error) {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	var (
		data []byte
		kind = "actual"
	)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Outputing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		if _, err := cmd.Root().Writer.Write(data); err != nil {
			return fmt.Errorf("unable to write configuration: %w", err)
		}
		return nil
	}

	env.Log.Info("Outputing configuration", zap.String("state", kind), zap.String("file", fname))
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration to '%s': %w", fname, err)
	}
	return nil
}

func stylingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "css", Usage: "additional stylesheet `FILE`, may be repeated"},
		&cli.StringFlag{Name: "native", Usage: "native selectors `MODE`: " + jsenv.ModeAuto + ", " + jsenv.ModeOn + " or " + jsenv.ModeOff + ", overrides configuration"},
	}
}
