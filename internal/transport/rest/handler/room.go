package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/service"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	rooms *service.RoomService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name          string `json:"name"`
	HostID        string `json:"hostId,omitempty"`
	MaxPlayers    int    `json:"maxPlayers,omitempty"`
	RoundDuration int    `json:"roundDuration,omitempty"`
	Password      string `json:"password,omitempty"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, token, err := h.rooms.CreateRoom(r.Context(), model.RoomConfig{
		Name:          req.Name,
		HostID:        req.HostID,
		MaxPlayers:    req.MaxPlayers,
		RoundDuration: req.RoundDuration,
		Password:      req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"code":   room.Code,
		"hostId": room.Config.HostID,
		"token":  token,
	})
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	snapshot, err := h.rooms.GetRoom(code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// SessionRequest is the request body for creating a room session
type SessionRequest struct {
	UserID   string `json:"userId,omitempty"`
	Password string `json:"password,omitempty"`
}

// CreateSession handles POST /v1/rooms/{code}/session
func (h *RoomHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, token, err := h.rooms.CreateSession(code, req.UserID, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"userId": userID,
		"token":  token,
	})
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRoomFull), errors.Is(err, service.ErrWrongPhase):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
