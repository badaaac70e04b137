package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymclub/internal/identity"
	"gymclub/internal/session"
)

type fakeIdentityService struct {
	signUp func(ctx context.Context, email string, password string, metadata map[string]any) (*identity.SignupResult, error)
}

func (f *fakeIdentityService) CurrentIdentity(context.Context, string) (*identity.Identity, error) {
	return nil, nil
}

func (f *fakeIdentityService) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	return nil, nil
}

func (f *fakeIdentityService) SignUp(ctx context.Context, email string, password string, metadata map[string]any) (*identity.SignupResult, error) {
	return f.signUp(ctx, email, password, metadata)
}

func (f *fakeIdentityService) SignInWithMagicLink(context.Context, string, string) error {
	return nil
}

func (f *fakeIdentityService) SignOut(context.Context, string) error { return nil }

func (f *fakeIdentityService) RefreshSession(context.Context, string) (*identity.Session, error) {
	return nil, nil
}

func newSignupHandler(t *testing.T, ids identity.Service) *AuthHandler {
	t.Helper()

	manager := session.NewManager(ids, nil, identity.NewBus(), session.DefaultTimeouts(), time.Hour)
	t.Cleanup(manager.Close)
	return NewAuthHandler(manager, nil, "http://localhost:5173")
}

func postSignup(t *testing.T, h *AuthHandler, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	h.Signup(rec, req)
	return rec
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("provider answer without a user is not a server error", func(t *testing.T) {
		// Duplicate emails come back as an empty result rather than an error.
		ids := &fakeIdentityService{
			signUp: func(context.Context, string, string, map[string]any) (*identity.SignupResult, error) {
				return &identity.SignupResult{}, nil
			},
		}

		rec := postSignup(t, newSignupHandler(t, ids), map[string]string{
			"email":    "taken@club.test",
			"password": "Password123!",
			"nombre":   "Ana",
			"dni":      "30111222",
		})

		require.Equal(t, http.StatusCreated, rec.Code)

		var decoded struct {
			Success bool `json:"success"`
			Data    struct {
				Session struct {
					Authenticated bool `json:"authenticated"`
				} `json:"session"`
				RefreshToken string `json:"refresh_token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.True(t, decoded.Success)
		assert.False(t, decoded.Data.Session.Authenticated)
		assert.Empty(t, decoded.Data.RefreshToken)
	})

	t.Run("missing nombre rejected before the provider is called", func(t *testing.T) {
		ids := &fakeIdentityService{
			signUp: func(context.Context, string, string, map[string]any) (*identity.SignupResult, error) {
				t.Fatal("provider must not be reached")
				return nil, nil
			},
		}

		rec := postSignup(t, newSignupHandler(t, ids), map[string]string{
			"email":    "new@club.test",
			"password": "Password123!",
			"dni":      "30111222",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
