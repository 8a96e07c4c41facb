// Package models defines shared API response envelopes for cute-schedule.
package models

// APIResponse is the uniform JSON envelope returned by every endpoint.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Success returns a successful response wrapping the given result.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Result: result}
}

// SuccessWithMessage returns a successful response with a human message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: StatusOK, Message: message, Result: result}
}

// Error returns an error response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: StatusError, Error: message}
}
