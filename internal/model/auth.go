package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the JWT claims of a room-scoped session token. The
// token ties a websocket to a room and user id; it is transport plumbing,
// not identity verification.
type SessionClaims struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Host     bool   `json:"host"`
	jwt.RegisteredClaims
}
