package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	Broadcast(roomCode string, event string, payload interface{})
	SendToUser(roomCode, userID string, event string, payload interface{})
}
