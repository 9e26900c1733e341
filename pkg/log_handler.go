package gpm

// https://stackoverflow.com/questions/77422213/how-to-hide-all-keys-when-using-slog-in-golang

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler prints "[time] [LEVEL] [module] message" lines, hiding attribute
// keys. Info records omit the level tag to keep progress lines short.
type Handler struct {
	h   slog.Handler
	mu  *sync.Mutex
	out io.Writer
}

func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		out: o,
		h:   slog.NewTextHandler(o, &slog.HandlerOptions{Level: opts.Level}),
		mu:  &sync.Mutex{},
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h: h.h.WithAttrs(attrs), out: h.out, mu: h.mu}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h: h.h.WithGroup(name), out: h.out, mu: h.mu}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Time.Format("[2006/01/02 15:04:05]"))
	if r.Level != slog.LevelInfo {
		fmt.Fprintf(&line, " [%s]", r.Level)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&line, " [%s]", a.Value.String())
		return true
	})
	line.WriteString(" ")
	line.WriteString(r.Message)
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line.String())
	return err
}

// SlogLogger sends informational messages to a bracketed text handler and
// warnings and errors to a JSON handler.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func NewSlogLogger(stdout io.Writer, stderr io.Writer) SlogLogger {
	handlerStdOut := NewHandler(stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	handlerStdErr := slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	return SlogLogger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func (l SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l SlogLogger) Warn(message string, module string) {
	l.InfoLog.Warn(message, "module", module)
	l.ErrorLog.Warn(message, "module", module)
}

func (l SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}
