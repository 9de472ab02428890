// Package commands contains the command-level orchestration for dpack:
// it wires the rule compiler, manifest builder, format dispatcher and
// post-processors together and executes the resulting pipelines.
package commands

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger for command operations. On a
// terminal it uses the text handler for human-readable output; when
// stderr is piped or redirected it switches to JSON for
// machine-parseable logs.
func NewLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
