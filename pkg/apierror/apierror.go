package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Timeout builds the retry-eligible timeout error the session layer raises
// when a backend call loses its deadline race.
func Timeout(code string, details string) *APIError {
	return &APIError{Code: code, Message: "the backend took too long to respond", Details: details, HTTPStatus: http.StatusGatewayTimeout}
}

// IsTimeout reports whether err is one of the local timer errors. These are
// recoverable: callers keep stale state and offer a retry instead of failing.
func IsTimeout(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "AUTH_TIMEOUT" || apiErr.Code == "TIMEOUT_EXCEEDED"
	}
	return false
}
