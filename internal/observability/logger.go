package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// LogOptions selects the handler and level of NewLogger.
type LogOptions struct {
	Level   slog.Level
	JSON    bool
	Service string
}

func NewLogger(opts LogOptions, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: opts.Level})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: opts.Level})
	}
	service := opts.Service
	if service == "" {
		service = "datask"
	}
	return slog.New(handler).With(slog.String("service", service))
}

// NewRequestID returns a random v4 UUID string.
func NewRequestID() string { return uuid.NewString() }

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// EnsureRequestID returns ctx carrying a request id, minting one if absent.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return ContextWithRequestID(ctx, id), id
}
