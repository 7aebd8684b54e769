package board

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codequest/backend-go/internal/auth"
	"github.com/codequest/backend-go/internal/document"
)

const maxCanvasSize = 5 << 20 // 5MB

// LiveSessions reports whether a board is currently open in a live session.
type LiveSessions interface {
	IsLive(boardID string) bool
}

type Handler struct {
	service *Service
	live    LiveSessions
}

// NewHandler creates the board handler. live may be nil when no live sessions
// are hosted.
func NewHandler(service *Service, live LiveSessions) *Handler {
	return &Handler{service: service, live: live}
}

type createRequest struct {
	Name   string               `json:"name"`
	Canvas *document.CanvasData `json:"canvas,omitempty"`
	Sample bool                 `json:"sample,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCanvasSize)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	initial := req.Canvas
	if initial == nil && req.Sample {
		sample := document.NewSampleCanvas()
		initial = &sample
	}

	created, err := h.service.Create(r.Context(), req.Name, initial)
	if err != nil {
		slog.Error("create board failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	board, err := h.service.Get(r.Context(), boardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list boards failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, boards)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	var access auth.Access
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		access = claims.Access
	}

	if err := h.service.Delete(r.Context(), boardID, access); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	snap, err := h.service.LatestSnapshot(r.Context(), boardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// SaveSnapshot stores a canvas posted by a client that edits offline, such as
// the wasm build. It is refused while the board is open in a live session,
// whose next save would overwrite it.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]
	if h.live != nil && h.live.IsLive(boardID) {
		handleServiceError(w, ErrLiveSession)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCanvasSize)

	var canvas document.CanvasData
	if err := json.NewDecoder(r.Body).Decode(&canvas); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canvas"})
		return
	}

	if _, err := h.service.Get(r.Context(), boardID); err != nil {
		handleServiceError(w, err)
		return
	}

	version, err := h.service.SaveCanvas(r.Context(), boardID, document.NewCanvasData(canvas.Elements))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"version": version})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrLiveSession):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "board is open in a live session"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
