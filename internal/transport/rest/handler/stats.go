package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/service"
)

// StatsHandler handles lifetime-stats endpoints
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Leaderboard handles GET /v1/leaderboard
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top := 10
	if topStr := r.URL.Query().Get("top"); topStr != "" {
		if n, err := strconv.Atoi(topStr); err == nil && n > 0 {
			top = n
		}
	}

	entries, err := h.stats.Leaderboard(r.Context(), top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

type userStatsResponse struct {
	*model.UserStats
	WinsRank int64 `json:"winsRank"`
}

// UserStats handles GET /v1/users/{userId}/stats
func (h *StatsHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	stats, rank, err := h.stats.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "no stats for user")
		return
	}

	writeJSON(w, http.StatusOK, userStatsResponse{UserStats: stats, WinsRank: rank})
}
