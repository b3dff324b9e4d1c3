package domain

import (
	"fmt"
	"net/http"
)

// ErrorType is the coarse class of a failed request.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	// ErrorTypeTimeout means the caller's deadline expired mid-run.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeServer covers stage failures, lost escalations and anything unclassified.
	ErrorTypeServer ErrorType = "server"
)

var statusByType = map[ErrorType]int{
	ErrorTypeInvalidRequest: http.StatusBadRequest,
	ErrorTypeNotFound:       http.StatusNotFound,
	ErrorTypeTimeout:        http.StatusGatewayTimeout,
	ErrorTypeServer:         http.StatusInternalServerError,
}

// ErrorCode narrows an ErrorType.
type ErrorCode string

const (
	ErrorCodeStageFailed      ErrorCode = "stage_failed"
	ErrorCodeEscalationFailed ErrorCode = "escalation_failed"
	ErrorCodeRunNotFound      ErrorCode = "run_not_found"
)

// APIError is the body of every non-2xx response: {"error": {"type", "code", "message"}}.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message"`

	// StatusCode overrides the status derived from Type.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
}

// HTTPStatusCode maps the error to a response status. Unknown types are 500.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewAPIError(t ErrorType, message string) *APIError {
	return &APIError{Type: t, Message: message}
}

// WithCode sets Code and returns e for chaining.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode pins the response status regardless of Type.
func (e *APIError) WithStatusCode(status int) *APIError {
	e.StatusCode = status
	return e
}

func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

func ErrTimeout(message string) *APIError {
	return NewAPIError(ErrorTypeTimeout, message)
}

func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}
