package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"kingofdiamonds/internal/service"
	"kingofdiamonds/internal/transport/rest/handler"
	"kingofdiamonds/internal/transport/rest/middleware"
	"kingofdiamonds/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	RoomService     *service.RoomService
	PresenceService *service.PresenceService
	GameService     *service.GameService
	StatsService    *service.StatsService
	ReaperService   *service.ReaperService
	TokenService    *service.TokenService
	WSHub           *ws.Hub

	CORSOrigins string
	AdminKey    string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService)
	statsHandler := handler.NewStatsHandler(c.StatsService)
	adminHandler := handler.NewAdminHandler(c.ReaperService)
	wsHandler := ws.NewHandler(c.WSHub, c.TokenService, c.PresenceService, c.GameService)

	// Initialize middleware
	adminMW := middleware.NewAdminMiddleware(c.AdminKey)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/session", roomHandler.CreateSession).Methods("POST", "OPTIONS")
	v1.HandleFunc("/leaderboard", statsHandler.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/users/{userId}/stats", statsHandler.UserStats).Methods("GET", "OPTIONS")

	// WebSocket route (public with token in query param)
	v1.HandleFunc("/ws/rooms/{code}", wsHandler.ServeWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Admin routes (require the shared operator key)
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(adminMW.RequireAdmin)

	adminRoutes.HandleFunc("/reaper/sweep", adminHandler.Sweep).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/activity", adminHandler.Activity).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
