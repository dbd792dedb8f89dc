package handler

import (
	"time"

	"github.com/kshms10904/platform-system-vold/internal/storage/history"
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

// StartRequest is the body of POST /v1/checkpoint/start.
type StartRequest struct {
	Retry *int `json:"retry"`
}

// AbortRequest is the body of POST /v1/checkpoint/abort.
type AbortRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RestoreRequest is the body of POST /v1/checkpoint/restore.
type RestoreRequest struct {
	BlockDevice string `json:"block_device"`
}

// SupportedResponse is returned by GET /v1/checkpoint/supported.
type SupportedResponse struct {
	Supported bool `json:"supported"`
}

// NeededResponse is returned by the needs-checkpoint and needs-rollback
// queries.
type NeededResponse struct {
	Needed bool `json:"needed"`
}

// HistoryResponse is returned by GET /v1/history.
type HistoryResponse struct {
	Events []history.Event `json:"events"`
}
