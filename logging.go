package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/exp/slog"
)

//*******************************************
// logging
//*******************************************

type LogHandler struct {
	level slog.Level
	attrs []slog.Attr
}

func (self *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= self.level
}

func (self *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	msg := fmt.Sprintf("[%s] %s: %s", record.Time.Format("2006-01-02 15:04:05"), record.Level.String(), record.Message)
	record.Attrs(func(attr slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", attr.Key, attr.Value)
		return true
	})
	for _, attr := range self.attrs {
		msg += fmt.Sprintf(" %s=%v", attr.Key, attr.Value)
	}
	fmt.Fprintln(os.Stdout, msg)
	return nil
}

func (self *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{
		level: self.level,
		attrs: append(self.attrs, attrs...),
	}
}

func (self *LogHandler) WithGroup(name string) slog.Handler {
	return self
}

func InitLogging(level string) {
	log_level := slog.LevelInfo
	switch level {
	case "debug":
		log_level = slog.LevelDebug
	case "warn":
		log_level = slog.LevelWarn
	case "error":
		log_level = slog.LevelError
	}
	slog.SetDefault(slog.New(&LogHandler{level: log_level}))
}
