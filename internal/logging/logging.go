// Package logging is the simulator's structured logger. It is a thin
// layer over log/slog that fixes the field vocabulary used by the engine,
// the runner and the CLI.
package logging

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Field is a structured logging attribute.
type Field = slog.Attr

func String(key, value string) Field                 { return slog.String(key, value) }
func Int(key string, value int) Field                { return slog.Int(key, value) }
func Uint64(key string, value uint64) Field          { return slog.Uint64(key, value) }
func Float64(key string, value float64) Field        { return slog.Float64(key, value) }
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }
func Any(key string, value any) Field                { return slog.Any(key, value) }

// Err records err under the "error" key.
func Err(err error) Field {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}

// Step tags a record with a 0-based step index.
func Step(i int) Field { return slog.Int("step", i) }

// Node tags a record with a node ID.
func Node(id int) Field { return slog.Int("node", id) }

// Position records p as a {x_km, y_km} group under key.
func Position(key string, p model.Position) Field {
	return slog.Group(key, slog.Float64("x_km", p.X), slog.Float64("y_km", p.Y))
}

// Logger is the logging surface the simulator depends on.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config controls basic logger behaviour.
type Config struct {
	Level     string    // debug, info, warn, error; anything else is info
	Format    string    // json, text or none
	AddSource bool      // include source locations
	Output    io.Writer // defaults to os.Stdout
}

// New constructs a Logger backed by slog.
func New(cfg Config) Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "none", "off":
		h = slog.DiscardHandler
	default:
		h = slog.NewTextHandler(out, opts)
	}
	return handlerLogger{l: slog.New(h)}
}

// NewFromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_SOURCE. The default is
// a text handler at info level on stdout.
func NewFromEnv() Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		AddSource: strings.EqualFold(os.Getenv("LOG_SOURCE"), "true"),
	})
}

// Noop returns a logger that drops all records.
func Noop() Logger { return handlerLogger{l: slog.New(slog.DiscardHandler)} }

type handlerLogger struct {
	l *slog.Logger
}

func (h handlerLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return handlerLogger{l: h.l.With(args...)}
}

func (h handlerLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	h.emit(ctx, slog.LevelDebug, msg, fields)
}

func (h handlerLogger) Info(ctx context.Context, msg string, fields ...Field) {
	h.emit(ctx, slog.LevelInfo, msg, fields)
}

func (h handlerLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	h.emit(ctx, slog.LevelWarn, msg, fields)
}

func (h handlerLogger) Error(ctx context.Context, msg string, fields ...Field) {
	h.emit(ctx, slog.LevelError, msg, fields)
}

func (h handlerLogger) emit(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	h.l.LogAttrs(ctx, level, msg, fields...)
}

type runIDKey struct{}

// EnsureRunID returns ctx carrying a run ID, minting one if absent.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := RunID(ctx); id != "" {
		return ctx, id
	}
	id := strings.ToLower(rand.Text()[:12])
	return context.WithValue(ctx, runIDKey{}, id), id
}

// RunID returns the run ID carried by ctx, or "".
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// WithRunLogger ensures ctx carries a run ID and returns base annotated
// with it. A nil base yields Noop.
func WithRunLogger(ctx context.Context, base Logger) (context.Context, Logger) {
	if base == nil {
		base = Noop()
	}
	ctx, id := EnsureRunID(ctx)
	return ctx, base.With(String("run_id", id))
}
