package logger

import (
	"context"
	"log/slog"
)

// Status writes the per-source status lines of a scraper run.
type Status struct {
	logger *slog.Logger
}

func NewStatus(base *slog.Logger, source string) *Status {
	if base == nil {
		base = slog.Default()
	}
	return &Status{logger: base.With("source", source)}
}

func (s *Status) Logger() *slog.Logger {
	return s.logger
}

func (s *Status) Log(msg string, args ...any) {
	s.logger.Log(context.Background(), LevelLog, msg, args...)
}

func (s *Status) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

func (s *Status) Success(msg string, args ...any) {
	s.logger.Log(context.Background(), LevelSuccess, msg, args...)
}

func (s *Status) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With returns a Status that adds args to every line.
func (s *Status) With(args ...any) *Status {
	return &Status{logger: s.logger.With(args...)}
}
