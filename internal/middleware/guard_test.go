package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gymclub/internal/identity"
	"gymclub/internal/model"
	"gymclub/internal/session"
)

func TestDecide(t *testing.T) {
	memberIdent := &identity.Identity{ID: "u1", Metadata: map[string]any{"rol": "socio"}}
	adminProfile := &model.Profile{ID: "u1", Role: model.RoleAdmin}
	memberProfile := &model.Profile{ID: "u1", Role: model.RoleMember}

	t.Run("loading defers the decision", func(t *testing.T) {
		d := Decide(session.State{Loading: true}, model.RoleMember, "/dashboard")
		assert.False(t, d.Allow)
		assert.Equal(t, http.StatusServiceUnavailable, d.Status)
		assert.Equal(t, "SESSION_LOADING", d.Code)
		assert.True(t, d.Retryable)
		assert.Equal(t, 1, d.RetryAfter)
	})

	t.Run("no session redirects to login", func(t *testing.T) {
		d := Decide(session.State{}, model.RoleMember, "/dashboard")
		assert.False(t, d.Allow)
		assert.Equal(t, http.StatusUnauthorized, d.Status)
		assert.Equal(t, "/login", d.Redirect)
	})

	t.Run("auth error without profile or hint yields a retryable error", func(t *testing.T) {
		bareIdent := &identity.Identity{ID: "u1"}
		d := Decide(session.State{Identity: bareIdent, AuthError: "TIMEOUT_EXCEEDED"}, model.RoleMember, "/dashboard")
		assert.False(t, d.Allow)
		assert.Equal(t, http.StatusServiceUnavailable, d.Status)
		assert.Equal(t, "PROFILE_UNAVAILABLE", d.Code)
		assert.True(t, d.Retryable)
		assert.Empty(t, d.Redirect, "retryable failures must not navigate away")
	})

	t.Run("metadata hint rides out a failed profile load", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, AuthError: "TIMEOUT_EXCEEDED"}, model.RoleMember, "/dashboard")
		assert.True(t, d.Allow)
	})

	t.Run("stale auth error with a live profile does not block", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, Profile: memberProfile, AuthError: "TIMEOUT_EXCEEDED"}, model.RoleMember, "/dashboard")
		assert.True(t, d.Allow)
	})

	t.Run("member hitting the admin area is sent to their landing", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, Profile: memberProfile}, model.RoleAdmin, "/admin")
		assert.False(t, d.Allow)
		assert.Equal(t, http.StatusForbidden, d.Status)
		assert.Equal(t, "/dashboard", d.Redirect)
	})

	t.Run("admin hitting the member area is sent to /admin", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, Profile: adminProfile}, model.RoleMember, "/dashboard")
		assert.False(t, d.Allow)
		assert.Equal(t, "/admin", d.Redirect)
	})

	t.Run("no redirect when already on the landing page", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, Profile: memberProfile}, model.RoleAdmin, "/dashboard")
		assert.False(t, d.Allow)
		assert.Equal(t, http.StatusForbidden, d.Status)
		assert.Empty(t, d.Redirect, "redirecting to the current page would loop")
	})

	t.Run("matching role is allowed", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent, Profile: adminProfile}, model.RoleAdmin, "/admin")
		assert.True(t, d.Allow)
	})

	t.Run("empty required role admits any authenticated session", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent}, "", "/dashboard")
		assert.True(t, d.Allow)
	})

	t.Run("metadata hint is enough before the profile row exists", func(t *testing.T) {
		d := Decide(session.State{Identity: memberIdent}, model.RoleMember, "/dashboard")
		assert.True(t, d.Allow)
	})
}

func TestGuard_NoSessionCookie(t *testing.T) {
	manager := session.NewManager(nil, nil, identity.NewBus(), session.DefaultTimeouts(), time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	})
	handler := Guard(manager, model.RoleMember)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/member/summary", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/login"`)
}
