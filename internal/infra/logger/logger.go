package logger

import (
	"io"
	"log/slog"
	"os"
)

// New: в dev — текстовый вывод с debug, иначе JSON с info.
func New(env string) *slog.Logger {
	return NewTo(os.Stdout, env)
}

func NewTo(w io.Writer, env string) *slog.Logger {
	if env == "dev" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
