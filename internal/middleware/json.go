package middleware

import (
	"encoding/json"
	"net/http"

	"gymclub/internal/model"
)

// writeAPIError renders the standard error envelope from middleware, so
// guard denials, rate limits and recovered panics look exactly like handler
// errors to the frontend.
func writeAPIError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   apiErr,
	})
}
