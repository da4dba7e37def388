package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ncss/config"
	"ncss/misc"
	"ncss/state"
)

// lifecycle sets up and tears down program environment around subcommand
// execution. Errors from subcommands are regular errors, cli.Exit is not used.
type lifecycle struct {
	// set when error has been logged and does not need to go to stderr again
	handled bool
}

// before runs after command line has been parsed.
func (lc *lifecycle) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	configFile := cmd.String("config")

	cfg, err := config.LoadConfiguration(configFile)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	env.Cfg = cfg

	if cmd.Bool("debug") {
		if err := openReport(env, configFile); err != nil {
			return ctx, err
		}
	}

	if env.Log, err = cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started",
		zap.Strings("args", os.Args),
		zap.String("ver", misc.GetVersion()),
		zap.String("runtime", runtime.Version()),
		zap.String("hash", misc.GetGitHash()))
	switch {
	case env.Rpt != nil:
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	case len(configFile) == 0:
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

// openReport starts debug report and puts processed configuration into it.
func openReport(env *state.LocalEnv, configFile string) (err error) {
	if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
		return fmt.Errorf("unable to prepare debug reporter: %w", err)
	}
	if len(configFile) == 0 {
		return nil
	}
	if data, err := config.Dump(env.Cfg); err == nil {
		env.Rpt.StoreData("config/"+filepath.Base(configFile), data)
	}
	return nil
}

// after closes log and report. Errors from here on go to stderr directly.
func (lc *lifecycle) after(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()

	if er := env.Rpt.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
	}
	if env.Cfg != nil {
		err = multierr.Append(err, removeEmptyPanicLog(env.Cfg.Logging.FileLogger.Destination))
	}
	return err
}

// removeEmptyPanicLog stops crash output capture and drops panic log next to
// file log if nothing was written there.
func removeEmptyPanicLog(logFile string) error {
	if len(logFile) == 0 {
		return nil
	}
	debug.SetCrashOutput(nil, debug.CrashOptions{})

	name := filepath.Join(filepath.Dir(logFile), misc.GetAppName()+"-panic.log")
	fi, err := os.Stat(name)
	if err != nil || fi.Size() != 0 {
		return nil
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("unable to remove empty panic log file '%s': %w", name, err)
	}
	return nil
}

// onExitErr is called before after(), so error still could be logged.
func (lc *lifecycle) onExitErr(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Log == nil {
		return
	}
	env.Log.Error("Program ended with error", zap.Error(err))
	lc.handled = true
}

// onUsageErr leaves reporting to onExitErr or main.
func onUsageErr(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func onCommandNotFound(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Logger().Warn("Unknown command, nothing to do", zap.String("command", name))
}
