package api

import (
	"time"

	"github.com/nadasuara/server/domain/entities"
)

// DeviceAuthRequest represents the request payload for device authentication
type DeviceAuthRequest struct {
	SerialNumber string `json:"serial_number" validate:"required"`
	SecretKey    string `json:"secret_key" validate:"required"`
}

// DeviceAuthResponse represents the response payload for device authentication
type DeviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

// TranscribeResponse is the result of a single-shot transcription
type TranscribeResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"` // seconds of audio
	Language string  `json:"language"`
}

// TranscriptListResponse wraps archived transcripts for a device
type TranscriptListResponse struct {
	DeviceID    string                 `json:"device_id"`
	Transcripts []*entities.Transcript `json:"transcripts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
