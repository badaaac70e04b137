package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Redirect carries the navigation decision of the route guard so the
	// frontend router can honor it without interpreting codes.
	Redirect string `json:"redirect,omitempty"`
	// Retryable marks recoverable background failures (timeouts, network
	// blips) where the UI should offer a manual retry instead of navigating.
	Retryable bool `json:"retryable,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
