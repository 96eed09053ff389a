package schemas

import (
	"fmt"
	"net/http"
)

// ErrorResponse represents a standard API error (RFC 7807).
// It implements the standard Go error interface.
type ErrorResponse struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"` // HTTP Status Code
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// Error implements the error interface.
// This allows ErrorResponse to be returned as a standard Go error.
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// NewErrorResponse creates a general ErrorResponse.
func NewErrorResponse(status int, title, detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     fmt.Sprintf("https://call-session-service.com/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// --- Helper Constructors for Common HTTP Errors ---

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, "Bad Request", detail, instance)
}

// NewUnauthorizedError creates a 401 Unauthorized error.
func NewUnauthorizedError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, "Unauthorized", detail, instance)
}

// NewConflictError creates a 409 Conflict error.
func NewConflictError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, "Conflict", detail, instance)
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, "Not Found", detail, instance)
}

// NewInternalError creates a 500 Internal Server Error.
// Note: Be careful not to expose sensitive technical details in production.
func NewInternalError(detail, instance string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Internal Server Error", detail, instance)
}

// --- Domain-Specific Error Constructors ---

// SessionTerminalError creates a 409 Conflict error for mutations against a
// session that has already ended or failed. Terminal sessions are immutable;
// the rejection is uniform across the status-update and end paths.
func SessionTerminalError(detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     "https://call-session-service.com/session-already-terminal",
		Title:    "Session Already Terminal",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	}
}

// ValidationFailedError creates a 400 error carrying field-level details.
func ValidationFailedError(detail, instance string) *ErrorResponse {
	return &ErrorResponse{
		Type:     "https://call-session-service.com/validation-error",
		Title:    "Validation Failed",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	}
}
