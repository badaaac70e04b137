package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gymclub/internal/model"
	"gymclub/pkg/apierror"
)

// Service is the surface of the hosted identity provider the session layer
// consumes. Implementations must be safe for concurrent use.
type Service interface {
	CurrentIdentity(ctx context.Context, accessToken string) (*Identity, error)
	SignInWithPassword(ctx context.Context, email string, password string) (*Session, error)
	SignUp(ctx context.Context, email string, password string, metadata map[string]any) (*SignupResult, error)
	SignInWithMagicLink(ctx context.Context, email string, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
}

// Client talks to a GoTrue-compatible identity endpoint (the auth API the
// hosted backend exposes). It is stateless: token state lives in the session
// stores.
type Client struct {
	baseURL   string
	anonKey   string
	jwtSecret []byte
	http      *http.Client
}

func NewClient(baseURL string, anonKey string, jwtSecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		jwtSecret: []byte(jwtSecret),
		// No client-level timeout: callers bound each call with a context
		// deadline or the session layer's race helper.
		http: &http.Client{},
	}
}

func (c *Client) CurrentIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, nil
	}

	var ident Identity
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &ident); err != nil {
		return nil, err
	}
	if ident.ID == "" {
		return nil, nil
	}

	return &ident, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email string, password string) (*Session, error) {
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" || session.Identity == nil {
		return nil, apierror.New("UNAUTHORIZED", "identity service returned no session", "", http.StatusUnauthorized)
	}

	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email string, password string, metadata map[string]any) (*SignupResult, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
		"data":     metadata,
	}

	// /signup answers with a bare user when confirmation is pending and with
	// a full session otherwise; decode into a shape that covers both.
	var raw struct {
		Session
		ID           string         `json:"id"`
		UserMetadata map[string]any `json:"user_metadata"`
	}
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &raw); err != nil {
		return nil, err
	}

	result := &SignupResult{}
	if raw.AccessToken != "" {
		session := raw.Session
		result.Session = &session
		result.Identity = session.Identity
	} else if raw.ID != "" {
		result.Identity = &Identity{ID: raw.ID, Email: strings.TrimSpace(email), Metadata: raw.UserMetadata}
	}

	return result, nil
}

func (c *Client) SignInWithMagicLink(ctx context.Context, email string, redirectTo string) error {
	path := "/otp"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	body := map[string]any{"email": strings.TrimSpace(email), "create_user": false}
	return c.do(ctx, http.MethodPost, path, "", body, nil)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" || session.Identity == nil {
		return nil, apierror.New("UNAUTHORIZED", "refresh returned no session", "", http.StatusUnauthorized)
	}

	return &session, nil
}

// ValidateAccessToken verifies an access token against the shared project
// secret and extracts the identity claims, including the metadata role hint.
func (c *Client) ValidateAccessToken(tokenString string) (*Identity, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return c.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	ident := &Identity{}
	ident.ID, _ = claims["sub"].(string)
	ident.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		ident.Metadata = meta
	}

	if ident.ID == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	return ident, nil
}

func (c *Client) do(ctx context.Context, method string, path string, bearer string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode identity request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}

	return nil
}

// decodeError maps GoTrue error payloads onto the local error taxonomy.
func decodeError(resp *http.Response) error {
	var payload struct {
		Msg         string `json:"msg"`
		Message     string `json:"message"`
		ErrorCode   string `json:"error_code"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	message := payload.Msg
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = payload.Description
	}
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = resp.Status
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		if payload.Error == "invalid_grant" || payload.ErrorCode == "invalid_credentials" {
			return fmt.Errorf("%w: %s", model.ErrInvalidCredentials, message)
		}
	}

	return apierror.New("IDENTITY_ERROR", message, "", resp.StatusCode)
}

// RefreshLead tells the session layer how long before token expiry a silent
// refresh should run.
func RefreshLead(expiresIn int64) time.Duration {
	if expiresIn <= 0 {
		return time.Minute
	}

	lead := time.Duration(expiresIn) * time.Second * 3 / 4
	if lead < 30*time.Second {
		lead = 30 * time.Second
	}
	return lead
}
