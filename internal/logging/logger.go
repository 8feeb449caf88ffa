// README: Structured JSON logger (slog) that stamps request-scoped fields from the context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON logger writing to stdout.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(&contextHandler{handler: h}).With(slog.String("service", "hatid"))
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// Fields are the request-scoped values every log line carries.
type Fields struct {
	RequestID string
	UserID    string
	BookingID string
}

func fieldsFrom(ctx context.Context) Fields {
	if f, ok := ctx.Value(ctxKey{}).(Fields); ok {
		return f
	}
	return Fields{}
}

func WithRequestID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.RequestID = id
	return context.WithValue(ctx, ctxKey{}, f)
}

func WithUserID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.UserID = id
	return context.WithValue(ctx, ctxKey{}, f)
}

func WithBookingID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.BookingID = id
	return context.WithValue(ctx, ctxKey{}, f)
}

// Detach keeps the logging fields of ctx but drops its deadline and cancellation,
// for work that must outlive the request.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), ctxKey{}, fieldsFrom(ctx))
}

type contextHandler struct {
	handler slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.handler.Enabled(ctx, lvl)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	f := fieldsFrom(ctx)
	if f.RequestID != "" {
		r.AddAttrs(slog.String("request_id", f.RequestID))
	}
	if f.UserID != "" {
		r.AddAttrs(slog.String("user_id", f.UserID))
	}
	if f.BookingID != "" {
		r.AddAttrs(slog.String("booking_id", f.BookingID))
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}
