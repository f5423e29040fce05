package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed ui/index.html
var uiFS embed.FS

var indexTemplate = template.Must(template.ParseFS(uiFS, "ui/index.html"))

type indexData struct {
	MaxUploadMB int64
	Formats     string
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{MaxUploadMB: h.deps.MaxUploadBytes >> 20, Formats: ".csv,.xlsx,.xls"}
	if err := indexTemplate.Execute(w, data); err != nil {
		h.deps.Logger.ErrorContext(r.Context(), "render index", slog.Any("error", err))
	}
}
