//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gymclub/internal/config"
	"gymclub/internal/database"
	"gymclub/internal/event"
	"gymclub/internal/handler"
	"gymclub/internal/identity"
	"gymclub/internal/repository"
	"gymclub/internal/router"
	"gymclub/internal/service"
	"gymclub/internal/session"
	"gymclub/internal/storage"
	"gymclub/internal/websocket"
)

// stubIdentity is a minimal GoTrue look-alike backing the integration suite,
// so the full HTTP surface runs without a hosted auth project.
type stubIdentity struct {
	mu            sync.Mutex
	users         map[string]stubUser // by email
	accessTokens  map[string]string   // access token -> email
	refreshTokens map[string]string   // refresh token -> email
	nextID        int
}

type stubUser struct {
	ID       string
	Email    string
	Password string
	Metadata map[string]any
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{
		users:         make(map[string]stubUser),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
	}
}

func (s *stubIdentity) issueSession(u stubUser) map[string]any {
	access := fmt.Sprintf("access-%s-%d", u.ID, len(s.accessTokens))
	refresh := fmt.Sprintf("refresh-%s-%d", u.ID, len(s.refreshTokens))
	s.accessTokens[access] = u.Email
	s.refreshTokens[refresh] = u.Email

	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int64(3600),
		"user": map[string]any{
			"id":            u.ID,
			"email":         u.Email,
			"user_metadata": u.Metadata,
		},
	}
}

func (s *stubIdentity) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Email    string         `json:"email"`
			Password string         `json:"password"`
			Data     map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.users[payload.Email]; exists {
			writeStubError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
			return
		}

		s.nextID++
		u := stubUser{
			ID:       fmt.Sprintf("00000000-0000-0000-0000-%012d", s.nextID),
			Email:    payload.Email,
			Password: payload.Password,
			Metadata: payload.Data,
		}
		s.users[payload.Email] = u
		writeStubJSON(w, http.StatusOK, s.issueSession(u))
	})

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.URL.Query().Get("grant_type") {
		case "password":
			var payload struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)

			u, ok := s.users[payload.Email]
			if !ok || u.Password != payload.Password {
				writeStubError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
				return
			}
			writeStubJSON(w, http.StatusOK, s.issueSession(u))

		case "refresh_token":
			var payload struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)

			email, ok := s.refreshTokens[payload.RefreshToken]
			if !ok {
				writeStubError(w, http.StatusBadRequest, "invalid_grant", "Invalid Refresh Token")
				return
			}
			writeStubJSON(w, http.StatusOK, s.issueSession(s.users[email]))

		default:
			writeStubError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
		}
	})

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		email, ok := s.accessTokens[token]
		if !ok {
			writeStubError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
			return
		}

		u := s.users[email]
		writeStubJSON(w, http.StatusOK, map[string]any{
			"id":            u.ID,
			"email":         u.Email,
			"user_metadata": u.Metadata,
		})
	})

	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /otp", func(w http.ResponseWriter, _ *http.Request) {
		writeStubJSON(w, http.StatusOK, map[string]any{})
	})

	return mux
}

func writeStubJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeStubError(w http.ResponseWriter, status int, code string, msg string) {
	writeStubJSON(w, status, map[string]any{"error_code": code, "msg": msg})
}

type testEnv struct {
	server *httptest.Server
	db     *database.DB
}

// newTestEnv brings up the whole stack against DATABASE_URL, with the stub
// identity server standing in for the hosted auth API. Tables are truncated
// so each test starts clean.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, "TRUNCATE payments, notifications, profiles CASCADE")
	require.NoError(t, err)

	idServer := httptest.NewServer(newStubIdentity().handler())
	t.Cleanup(idServer.Close)

	profileRepo := repository.NewProfileRepository(db.Pool)
	paymentRepo := repository.NewPaymentRepository(db.Pool)
	notificationRepo := repository.NewNotificationRepository(db.Pool)

	files, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ids := identity.NewClient(idServer.URL, "anon-key", "integration-secret")
	manager := session.NewManager(ids, profileRepo, identity.NewBus(), session.Timeouts{
		Init:        4 * time.Second,
		SafetyValve: 8 * time.Second,
		Profile:     4 * time.Second,
		Refresh:     4 * time.Second,
	}, time.Hour)
	t.Cleanup(manager.Close)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	membership := service.NewMembershipService(profileRepo, notificationRepo, bus)
	payments := service.NewPaymentService(paymentRepo, files, bus, 15000, 5*1024*1024)
	notifications := service.NewNotificationService(notificationRepo, profileRepo, files, service.NoopMailer{}, bus)

	cfg := &config.Config{
		RequestTimeout:   10 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
		MaxUploadSize:    5 * 1024 * 1024,
	}

	appRouter := router.New(cfg, db, manager, hub,
		handler.NewAuthHandler(manager, profileRepo, "http://localhost:5173"),
		handler.NewMemberHandler(membership, payments, notifications, cfg.MaxUploadSize),
		handler.NewAdminHandler(membership, payments, notifications, cfg.MaxUploadSize),
		files.RootAbs(),
	)

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db}
}

// newClient returns an HTTP client with its own cookie jar, i.e. one browser
// session.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 15 * time.Second}
}

func doJSON(t *testing.T, client *http.Client, method string, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func signupMember(t *testing.T, client *http.Client, baseURL string, email string) map[string]any {
	t.Helper()

	resp, body := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/signup", map[string]string{
		"email":    email,
		"password": "Password123!",
		"nombre":   "Integration Member",
		"dni":      "30111222",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "signup response: %v", body)
	return body
}
