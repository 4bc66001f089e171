package errors

import "net/http"

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// LoadFailed reports that the store could not be read. Local state is kept,
// so the client may retry or refresh.
func LoadFailed(message string) *APIError {
	if message == "" {
		message = "could not load"
	}
	return New(http.StatusBadGateway, "load_failed", message)
}

// SaveFailed reports edits the store refused. They stay in memory and are
// retried on the next sync.
func SaveFailed(message string, details interface{}) *APIError {
	if message == "" {
		message = "could not save"
	}
	err := New(http.StatusBadGateway, "save_failed", message)
	err.Details = details
	return err
}

func Timeout(message string) *APIError {
	if message == "" {
		message = "request timed out"
	}
	return New(http.StatusGatewayTimeout, "timeout", message)
}
