package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/codequest/backend-go/internal/board"
	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
	"github.com/codequest/backend-go/internal/render"
	"github.com/codequest/backend-go/internal/typeid"
)

const maxCanvasSize = 5 << 20 // 5MB

// CanvasSource loads the latest saved canvas of a board.
type CanvasSource interface {
	LoadCanvas(ctx context.Context, boardID string) (*document.CanvasData, error)
}

// StoredExport is returned when an export is written to disk.
type StoredExport struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// Handler renders canvases to PNG.
type Handler struct {
	dir      string // directory for stored exports
	canvases CanvasSource
	theme    engine.Theme
}

// NewHandler creates an export handler that stores files in dir.
func NewHandler(dir string, canvases CanvasSource, theme engine.Theme) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create export dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, canvases: canvases, theme: theme}
}

// ExportPNG handles POST /export/png with a CanvasData body.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCanvasSize)

	var canvas document.CanvasData
	if err := json.NewDecoder(r.Body).Decode(&canvas); err != nil {
		http.Error(w, "invalid canvas: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writePNG(w, r, canvas)
}

// BoardPNG handles GET /api/boards/{boardId}/export.png.
func (h *Handler) BoardPNG(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.loadCanvas(w, r)
	if !ok {
		return
	}
	h.writePNG(w, r, *canvas)
}

// Store handles POST /api/boards/{boardId}/exports. The PNG is written under
// the export directory and served from /exports/.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.loadCanvas(w, r)
	if !ok {
		return
	}

	data, err := h.encode(r, *canvas)
	if err != nil {
		slog.Error("render export", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	exportID := typeid.NewExportID()
	filename := exportID + ".png"
	if err := os.WriteFile(filepath.Join(h.dir, filename), data, 0644); err != nil {
		slog.Error("write export file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	resp := StoredExport{
		ID:       exportID,
		BoardID:  mux.Vars(r)["boardId"],
		URL:      fmt.Sprintf("/exports/%s", filename),
		Filename: render.ExportFilename,
		Size:     len(data),
	}

	slog.Info("export stored", "board", resp.BoardID, "export", exportID, "size", len(data))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored exports with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/exports/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Export IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func (h *Handler) loadCanvas(w http.ResponseWriter, r *http.Request) (*document.CanvasData, bool) {
	boardID := mux.Vars(r)["boardId"]

	canvas, err := h.canvases.LoadCanvas(r.Context(), boardID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			http.Error(w, "board not found", http.StatusNotFound)
			return nil, false
		}
		slog.Error("load canvas for export", "board", boardID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return canvas, true
}

func (h *Handler) writePNG(w http.ResponseWriter, r *http.Request, canvas document.CanvasData) {
	data, err := h.encode(r, canvas)
	if err != nil {
		slog.Error("render export", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, render.ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// encode renders the canvas, honoring an optional ?theme= override.
func (h *Handler) encode(r *http.Request, canvas document.CanvasData) ([]byte, error) {
	theme := h.theme
	if name := r.URL.Query().Get("theme"); name != "" {
		theme = engine.ThemeByName(name)
	}

	var buf bytes.Buffer
	if err := render.ExportPNG(&buf, canvas, theme); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
