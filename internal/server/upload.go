package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// upload is one received file written to a temp path that keeps the
// original extension, so the loader can pick a reader.
type upload struct {
	path     string
	question string
}

func (u upload) cleanup(logger *slog.Logger) {
	if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("temp file cleanup failed", slog.String("path", u.path), slog.Any("error", err))
	}
}

// receive parses the multipart form fields file and question. It writes an
// error response and returns false when the request is unusable.
func (h *handler) receive(w http.ResponseWriter, r *http.Request) (upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.deps.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error(), false)
			return upload{}, false
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORM", err.Error(), false)
		return upload{}, false
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	src, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_FILE", "form field 'file' is required", false)
		return upload{}, false
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(hdr.Filename)))
	if len(ext) > 16 {
		ext = ""
	}
	dst, err := os.CreateTemp("", "datask-*"+ext)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), false)
		return upload{}, false
	}
	u := upload{path: dst.Name(), question: r.FormValue("question")}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		u.cleanup(h.deps.Logger)
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORM", err.Error(), false)
		return upload{}, false
	}
	if err := dst.Close(); err != nil {
		u.cleanup(h.deps.Logger)
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), false)
		return upload{}, false
	}
	return u, true
}
