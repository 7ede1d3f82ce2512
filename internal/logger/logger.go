package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
)

var levelVar = new(slog.LevelVar)

var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetOutput swaps the handler behind L. "console" gives human readable
// lines, anything else JSON. A nil writer keeps the default stream.
func SetOutput(format string, w io.Writer) {
	L = New(format, w)
}

// New builds a logger sharing the global level. A nil writer picks the
// default stream for the format.
func New(format string, w io.Writer) *slog.Logger {
	if strings.ToLower(format) == "console" {
		if w == nil {
			w = os.Stderr
		}
		return slog.New(console.NewHandler(w, &console.HandlerOptions{Level: levelVar}))
	}
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}
