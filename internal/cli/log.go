// Package cli implements the phylocite command-line interface.
//
// # Commands
//
//   - simulate: grow a synthetic citation network
//   - traits: assign keyword traits to every record
//   - analyze: measure inheritance in a network on disk
//   - run: simulate, assign and analyze in one go
//   - dot: render genealogy and inheritance diagrams
//   - fetch: walk a real patent network out of MongoDB
//   - serve: expose runs over HTTP
//   - cache: manage the local cache
//
// Run options come from flags, optionally layered over a TOML or YAML file
// given with --config. All commands support --verbose (-v) for debug-level
// logging; the logger travels in the command context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a stage took. It is not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Simulated 1000 nodes (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
