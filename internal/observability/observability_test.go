package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestIDMiddlewarePreservesIncomingID(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromContext(r.Context()); got != "req-1" {
			t.Fatalf("RequestIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("request id header = %q", got)
	}
}

func TestRequestIDMiddlewareGeneratesUUID(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if _, err := uuid.Parse(rr.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected a UUID request id: %v", err)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("EnsureRequestID did not attach id")
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatalf("EnsureRequestID replaced an existing id")
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogOptions{Level: slog.LevelInfo, JSON: true}, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"service":"datask"`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestObservePipelineOutcome(t *testing.T) {
	before := testutil.ToFloat64(pipelineOutcomesTotal.WithLabelValues("analyze", "rejected"))
	ObservePipelineOutcome("analyze", "rejected")
	after := testutil.ToFloat64(pipelineOutcomesTotal.WithLabelValues("analyze", "rejected"))
	if after-before != 1 {
		t.Fatalf("counter moved by %v", after-before)
	}
}

func TestObserveModelCall(t *testing.T) {
	ObserveModelCall("translate", "m", 10*time.Millisecond, nil)
	ObserveModelCall("translate", "m", 10*time.Millisecond, errors.New("boom"))
	if n := testutil.CollectAndCount(modelCallDurationSeconds); n < 2 {
		t.Fatalf("expected ok and error series, got %d", n)
	}
}
