package cli

import (
	"log/slog"
	"os"
)

// setupLogging installs the default slog handler. Logs go to stderr so REPL
// output on stdout stays clean.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
