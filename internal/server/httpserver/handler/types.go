package handler

import (
	"encoding/json"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// CreateSessionResponse is the response body for POST /sessions.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionTTLResponse is the response body for GET /sessions/{id}/ttl.
type SessionTTLResponse struct {
	SessionID  string `json:"session_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// ArchiveResponse is the response body for GET /sessions/{id}/archive.
type ArchiveResponse struct {
	SessionID string                  `json:"session_id"`
	Records   []*domain.DurableRecord `json:"records"`
	Total     int                     `json:"total"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// sessionPayload marks a stored payload so it is embedded verbatim.
type sessionPayload = json.RawMessage
