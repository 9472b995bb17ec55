// Package logger sets up structured logging. Records are written as
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// to stdout, a rotating file, or both.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	Stdout    bool   `toml:"stdout"`
}

// ParseLevel maps debug, info, warn and error (any case) to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Handler formats records on a single line.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	attrs []slog.Attr
	group string
}

func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder
	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteString(" [")
	buf.WriteString(r.Level.String())
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		attrs = append(attrs, a)
		return true
	})
	for i, a := range attrs {
		if i == 0 {
			buf.WriteString(" | ")
		} else {
			buf.WriteString(", ")
		}
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.Resolve().String())
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next, h.attrs)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next = append(next, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: next, group: h.group}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	g := name
	if h.group != "" {
		g = h.group + "." + name
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: h.attrs, group: g}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. With a file configured, output goes to a
// lumberjack rotating file (plus stdout when Stdout is set); otherwise to
// stdout. The closer flushes and closes the file.
func New(cfg Config) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level)
	if cfg.File == "" {
		return slog.New(NewHandler(os.Stdout, level)), nopCloser{}
	}
	size := cfg.MaxSizeMB
	if size <= 0 {
		size = 10
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    size,
		MaxBackups: 3,
		MaxAge:     28,
	}
	var w io.Writer = lj
	if cfg.Stdout {
		w = io.MultiWriter(os.Stdout, lj)
	}
	return slog.New(NewHandler(w, level)), lj
}
