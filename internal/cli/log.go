// Package cli implements the docker-graph command-line interface.
//
// The commands are:
//   - watch: follow an event stream and keep graph files up to date
//   - serve: watch a Docker engine and serve its topology over HTTP
//   - replay: render the graph resulting from a captured event stream
//   - cache: manage the render cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context.
//
// # Configuration
//
// Settings come from the TOML file loaded by internal/config; flags the
// user sets override it.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Timestamps read "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLevel maps the --verbose flag to a level.
func logLevel(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// progress logs the outcome of a long operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
	now    func() time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now(), now: time.Now}
}

// elapsed is rounded to the millisecond.
func (p *progress) elapsed() time.Duration {
	return p.now().Sub(p.start).Round(time.Millisecond)
}

// done logs msg at info level with keyvals followed by the elapsed time,
// e.g. `replay complete events=42 skipped=1 elapsed=1.234s`.
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "elapsed", p.elapsed())...)
}

// failed is done at error level, with the error first.
func (p *progress) failed(msg string, err error, keyvals ...any) {
	p.logger.Error(msg, append([]any{"err", err}, append(keyvals, "elapsed", p.elapsed())...)...)
}

type ctxKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() for contexts that did not go through the root command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
