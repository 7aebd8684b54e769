package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type shareRequest struct {
	Access string `json:"access"`
}

type shareResponse struct {
	Token  string `json:"token"`
	Access Access `json:"access"`
}

// Share mints a new token for the board of the caller's token. Only edit
// tokens may share; view tokens cannot escalate.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil || !claims.Access.CanEdit() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "edit access required"})
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	access, err := ParseAccess(req.Access)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "access must be edit or view"})
		return
	}

	token, err := h.service.Issue(claims.BoardID(), access)
	if err != nil {
		if errors.Is(err, ErrInvalidAccess) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid access"})
			return
		}
		slog.Error("issue share token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, shareResponse{Token: token, Access: access})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
