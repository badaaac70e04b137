package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gymclub/internal/model"
	"gymclub/internal/repository"
	"gymclub/internal/session"
	"gymclub/pkg/apierror"
)

type AuthHandler struct {
	manager           *session.Manager
	profiles          *repository.ProfileRepository
	magicLinkRedirect string
}

func NewAuthHandler(manager *session.Manager, profiles *repository.ProfileRepository, magicLinkRedirect string) *AuthHandler {
	return &AuthHandler{
		manager:           manager,
		profiles:          profiles,
		magicLinkRedirect: magicLinkRedirect,
	}
}

// sessionView is the state snapshot handed to the SPA. Tokens never appear
// here; the refresh token travels once, in the login/signup response, so the
// client can restore the session after the cookie expires.
type sessionView struct {
	Loading       bool           `json:"loading"`
	Authenticated bool           `json:"authenticated"`
	Identity      *identityView  `json:"identity,omitempty"`
	Profile       *model.Profile `json:"profile,omitempty"`
	Role          model.Role     `json:"role,omitempty"`
	Landing       string         `json:"landing,omitempty"`
	AuthError     string         `json:"auth_error,omitempty"`
}

type identityView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newSessionView(state session.State) sessionView {
	view := sessionView{
		Loading:   state.Loading,
		AuthError: state.AuthError,
		Profile:   state.Profile,
	}

	if role, ok := state.Role(); ok {
		view.Authenticated = true
		view.Role = role
		view.Landing = role.LandingPath()
	}

	if state.Identity != nil {
		view.Identity = &identityView{ID: state.Identity.ID, Email: state.Identity.Email}
	}

	return view
}

type loginResponse struct {
	Session      sessionView `json:"session"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int64       `json:"expires_in,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	store := h.manager.Attach(w, r)
	sess, err := store.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, loginResponse{
		Session:      newSessionView(store.Snapshot()),
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    sess.ExpiresIn,
	}, nil)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.Nombre = strings.TrimSpace(payload.Nombre)
	payload.DNI = strings.TrimSpace(payload.DNI)
	if payload.Nombre == "" || payload.DNI == "" {
		writeError(w, apierror.New("BAD_REQUEST", "nombre and dni are required", "", http.StatusBadRequest))
		return
	}

	fechaVencimiento := time.Now()
	if strings.TrimSpace(payload.FechaVencimiento) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(payload.FechaVencimiento))
		if err != nil {
			writeError(w, apierror.New("BAD_REQUEST", "fecha_vencimiento must be YYYY-MM-DD", payload.FechaVencimiento, http.StatusBadRequest))
			return
		}
		fechaVencimiento = parsed
	}

	store := h.manager.Attach(w, r)
	result, err := store.Signup(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Identity == nil {
		// The provider may answer without a user (duplicate emails are
		// obfuscated this way); there is no id to hang a profile row on.
		writeSuccess(w, http.StatusCreated, loginResponse{Session: newSessionView(store.Snapshot())}, nil)
		return
	}

	now := time.Now().UTC()
	profile := model.Profile{
		ID:               result.Identity.ID,
		Email:            payload.Email,
		Nombre:           payload.Nombre,
		DNI:              payload.DNI,
		FechaVencimiento: fechaVencimiento,
		Role:             model.RoleMember,
		Status:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.profiles.Create(r.Context(), profile); err != nil {
		// The identity account exists either way; the profile row is
		// recreated on the next successful session bootstrap by an admin.
		slog.Error("profile creation after signup failed", "user_id", result.Identity.ID, "error", err)
	}

	response := loginResponse{Session: newSessionView(store.Snapshot())}
	if result.Session != nil {
		response.RefreshToken = result.Session.RefreshToken
		response.ExpiresIn = result.Session.ExpiresIn
	}

	writeSuccess(w, http.StatusCreated, response, nil)
}

func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" {
		writeError(w, apierror.New("BAD_REQUEST", "email is required", "email", http.StatusBadRequest))
		return
	}

	store := h.manager.Attach(w, r)
	if err := store.LoginWithMagicLink(r.Context(), payload.Email, h.magicLinkRedirect); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, map[string]string{"status": "sent"}, nil)
}

// Bootstrap restores a session from tokens the SPA retained across page
// loads. The response may still be loading=false with no identity when the
// tokens turned out to be dead.
func (h *AuthHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	store := h.manager.Attach(w, r)
	store.Initialize(r.Context(), payload.AccessToken, payload.RefreshToken)

	writeSuccess(w, http.StatusOK, newSessionView(store.Snapshot()), nil)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	store, ok := h.manager.Lookup(r)
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, newSessionView(store.Snapshot()), nil)
}

func (h *AuthHandler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := h.manager.Lookup(r)
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}

	store.RefreshProfile(r.Context())
	writeSuccess(w, http.StatusOK, newSessionView(store.Snapshot()), nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.manager.Lookup(r)
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}

	if err := store.Logout(r.Context()); err != nil {
		// Local state stays untouched so the member is not silently logged
		// out of a session the identity service still considers live.
		writeError(w, err)
		return
	}

	h.manager.Remove(store.SID())
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeSuccess(w, http.StatusOK, map[string]string{"status": "signed_out"}, nil)
}
