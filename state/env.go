// Package state carries program environment through context.
package state

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ncss/config"
)

type envKey struct{}

// LocalEnv is shared by all subcommands: configuration, debug report, log
// and metrics registry.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// Metrics collects path cache counters when styling.metrics is on.
	Metrics *prometheus.Registry

	start         time.Time
	restoreStdLog func()
}

// ContextWithEnv attaches fresh environment to ctx, clock for Uptime starts
// here.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{
		start:   time.Now(),
		Metrics: prometheus.NewRegistry(),
	})
}

// EnvFromContext panics when ctx was not prepared by ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program environment is missing from context")
	}
	return env
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Logger returns program log, never nil.
func (e *LocalEnv) Logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// RedirectStdLog sends output of standard library log package to program log
// until RestoreStdLog.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil {
		e.restoreStdLog = zap.RedirectStdLog(e.Log)
	}
}

// RestoreStdLog flushes program log and undoes RedirectStdLog.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog == nil {
		return
	}
	e.restoreStdLog()
	e.restoreStdLog = nil
}
