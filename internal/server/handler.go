// Package server exposes the analysis and visualization paths over HTTP
// together with a small upload page.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	"github.com/KaramelBytes/datask-cli/internal/observability"
	"github.com/KaramelBytes/datask-cli/internal/pipeline"
)

// Asker is the request orchestrator the handlers call.
type Asker interface {
	Analyze(ctx context.Context, path, question string) (pipeline.Answer, error)
	Visualize(ctx context.Context, path, question string) (pipeline.Plot, error)
}

type Dependencies struct {
	Logger         *slog.Logger
	Service        Asker
	MaxUploadBytes int64
}

const defaultMaxUpload = 32 << 20

// NewHandler builds the routes wrapped in request-id, logging and metrics
// middleware.
func NewHandler(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}
	h := &handler{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "datask"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/analyze", h.analyze)
	mux.HandleFunc("POST /api/visualize", h.visualize)

	return chain(mux,
		observability.RequestIDMiddleware,
		observability.LoggingMiddleware(deps.Logger),
		observability.MetricsMiddleware,
	)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

type handler struct {
	deps Dependencies
}

type analyzeResponse struct {
	Stage      string  `json:"stage"`
	Answer     string  `json:"answer"`
	Expression string  `json:"expression,omitempty"`
	Confidence float64 `json:"confidence"`
	LoadNote   string  `json:"load_note,omitempty"`
	RequestID  string  `json:"request_id"`
}

type visualizeResponse struct {
	Stage      string  `json:"stage"`
	Message    string  `json:"message"`
	Code       string  `json:"code,omitempty"`
	Confidence float64 `json:"confidence"`
	LoadNote   string  `json:"load_note,omitempty"`
	Charts     int     `json:"charts"`
	HTML       string  `json:"html,omitempty"`
	RequestID  string  `json:"request_id"`
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receive(w, r)
	if !ok {
		return
	}
	defer up.cleanup(h.deps.Logger)

	ans, err := h.deps.Service.Analyze(r.Context(), up.path, up.question)
	if err != nil {
		h.modelFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Stage:      string(ans.Stage),
		Answer:     ans.Text,
		Expression: ans.Expression,
		Confidence: ans.Confidence,
		LoadNote:   ans.LoadNote,
		RequestID:  observability.RequestIDFromContext(r.Context()),
	})
}

func (h *handler) visualize(w http.ResponseWriter, r *http.Request) {
	up, ok := h.receive(w, r)
	if !ok {
		return
	}
	defer up.cleanup(h.deps.Logger)

	p, err := h.deps.Service.Visualize(r.Context(), up.path, up.question)
	if err != nil {
		h.modelFailure(w, r, err)
		return
	}
	resp := visualizeResponse{
		Stage:      string(p.Stage),
		Message:    p.Text,
		Code:       p.Code,
		Confidence: p.Confidence,
		LoadNote:   p.LoadNote,
		RequestID:  observability.RequestIDFromContext(r.Context()),
	}
	if !p.Figure.Empty() {
		var buf bytes.Buffer
		if err := p.Figure.Render(&buf); err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "RENDER_FAILED", err.Error(), false)
			return
		}
		resp.Charts = len(p.Figure.Charts)
		resp.HTML = buf.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// modelFailure maps model transport errors to 502 and everything else to
// 500.
func (h *handler) modelFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.deps.Logger.ErrorContext(r.Context(), "request failed",
		slog.String("request_id", observability.RequestIDFromContext(r.Context())),
		slog.Any("error", err),
	)
	var (
		rl *ai.RateLimitError
		ae *ai.AuthError
		nf *ai.ModelNotFoundError
		br *ai.BadRequestError
		qe *ai.QuotaExceededError
		se *ai.ServerError
		ue *ai.UnreachableError
	)
	switch {
	case errors.As(err, &rl):
		writeError(r.Context(), w, http.StatusBadGateway, "MODEL_RATE_LIMITED", err.Error(), true)
	case errors.As(err, &se), errors.As(err, &ue):
		writeError(r.Context(), w, http.StatusBadGateway, "MODEL_UNAVAILABLE", err.Error(), true)
	case errors.As(err, &ae), errors.As(err, &nf), errors.As(err, &br), errors.As(err, &qe),
		errors.Is(err, ai.ErrMissingAPIKey), errors.Is(err, ai.ErrEmptyReply):
		writeError(r.Context(), w, http.StatusBadGateway, "MODEL_ERROR", err.Error(), false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(r.Context(), w, http.StatusGatewayTimeout, "TIMEOUT", err.Error(), true)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), false)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"request_id": observability.RequestIDFromContext(ctx),
	})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	return nil
}
