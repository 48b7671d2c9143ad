package session

import "time"

// CreateRequest defines payload for creating a gesture session.
type CreateRequest struct {
	ClientID     string  `json:"client_id"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	ClientID        string    `json:"client_id,omitempty"`
	Status          Status    `json:"status"`
	CanvasWidth     float64   `json:"canvas_width"`
	CanvasHeight    float64   `json:"canvas_height"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
	WebSocketPath   string    `json:"ws_path"`
}
