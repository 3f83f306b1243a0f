package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Status levels used by scraper runs in addition to the slog defaults.
const (
	LevelLog     = slog.Level(-2)
	LevelSuccess = slog.Level(2)
)

var levelNames = map[slog.Level]string{
	LevelLog:     "LOG",
	LevelSuccess: "SUCCESS",
}

// New builds a logger writing to stdout. Format is one of color, json or text.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: replaceLevel,
		})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: replaceLevel,
		})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:       lvl,
			TimeFormat:  "2006-01-02 15:04:05",
			ReplaceAttr: replaceLevel,
		})
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "log":
		return LevelLog
	case "success":
		return LevelSuccess
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if name, ok := levelNames[lvl]; ok {
		return slog.String(slog.LevelKey, name)
	}
	return a
}
