package middleware

import (
	"context"
	"net/http"
	"strconv"

	"gymclub/internal/model"
	"gymclub/internal/session"
)

// clientPathHeader carries the SPA route a guarded request is made on behalf
// of, so redirect decisions can avoid bouncing a user to the page they are
// already on.
const clientPathHeader = "X-Client-Path"

const loginPath = "/login"

type contextKey string

const sessionStoreContextKey contextKey = "session_store"

// Decision is the outcome of evaluating a guarded request against the
// current session state. When Allow is false the remaining fields describe
// the JSON error to render.
type Decision struct {
	Allow      bool
	Status     int
	Code       string
	Message    string
	Redirect   string
	Retryable  bool
	RetryAfter int
}

// Decide is the pure navigation-guard function. It inspects the session
// state in a fixed order: a still-loading session defers the decision, a
// missing session sends the visitor to login, a failed profile load with a
// live session yields a retryable error, and a role mismatch redirects to
// the landing page of the role the visitor actually has.
func Decide(state session.State, required model.Role, target string) Decision {
	if state.Loading {
		return Decision{
			Status:     http.StatusServiceUnavailable,
			Code:       "SESSION_LOADING",
			Message:    "session is still being established",
			Retryable:  true,
			RetryAfter: 1,
		}
	}

	role, ok := state.Role()
	if !ok {
		return Decision{
			Status:   http.StatusUnauthorized,
			Code:     "UNAUTHORIZED",
			Message:  "authentication required",
			Redirect: loginPath,
		}
	}

	if state.AuthError != "" && state.Profile == nil {
		// A metadata role hint keeps navigation working while the profile row
		// is missing; without one the failed load leaves no usable role.
		if _, hinted := state.Identity.RoleHint(); !hinted {
			return Decision{
				Status:    http.StatusServiceUnavailable,
				Code:      "PROFILE_UNAVAILABLE",
				Message:   "could not load the member profile",
				Retryable: true,
			}
		}
	}

	if required != "" && role != required {
		decision := Decision{
			Status:  http.StatusForbidden,
			Code:    "FORBIDDEN",
			Message: "insufficient permissions",
		}
		if landing := role.LandingPath(); landing != target {
			decision.Redirect = landing
		}
		return decision
	}

	return Decision{Allow: true}
}

// Guard gates a route subtree behind a required role. The matched session
// store is injected into the request context for handlers downstream.
func Guard(manager *session.Manager, required model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := manager.Lookup(r)
			if !ok {
				writeDecision(w, Decision{
					Status:   http.StatusUnauthorized,
					Code:     "UNAUTHORIZED",
					Message:  "authentication required",
					Redirect: loginPath,
				})
				return
			}

			decision := Decide(store.Snapshot(), required, r.Header.Get(clientPathHeader))
			if !decision.Allow {
				writeDecision(w, decision)
				return
			}

			ctx := context.WithValue(r.Context(), sessionStoreContextKey, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StoreFromContext returns the session store attached by Guard.
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(sessionStoreContextKey).(*session.Store)
	return store, ok
}

func writeDecision(w http.ResponseWriter, d Decision) {
	if d.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
	writeAPIError(w, d.Status, &model.APIError{
		Code:      d.Code,
		Message:   d.Message,
		Redirect:  d.Redirect,
		Retryable: d.Retryable,
	})
}
