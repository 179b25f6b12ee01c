package handler

import (
	"net/http"
	"strconv"

	"kingofdiamonds/internal/service"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	reaper *service.ReaperService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reaper *service.ReaperService) *AdminHandler {
	return &AdminHandler{reaper: reaper}
}

// Sweep handles POST /v1/admin/reaper/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	closed, err := h.reaper.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"closed": closed})
}

// Activity handles GET /v1/admin/rooms/activity
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	rooms, err := h.reaper.Activity(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}
