package identity

import (
	"gymclub/internal/model"
)

// Identity is an authenticated principal as known to the hosted identity
// service: opaque id, email and the metadata attached at sign-up.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

// RoleHint returns the role embedded in the identity metadata, if any. The
// signup flow writes it so gated navigation works before the profile row
// exists (e.g. while email confirmation is pending).
func (i *Identity) RoleHint() (model.Role, bool) {
	if i == nil || i.Metadata == nil {
		return "", false
	}

	raw, ok := i.Metadata["rol"].(string)
	if !ok || raw == "" {
		return "", false
	}

	return model.Role(raw), true
}

// Session is the token bundle the identity service issues on sign-in and
// refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	Identity     *Identity `json:"user"`
}

// SignupResult carries what /signup returned: the created identity, and a
// session only when the project does not require email confirmation.
type SignupResult struct {
	Identity *Identity `json:"user"`
	Session  *Session  `json:"session"`
}

type EventKind string

const (
	EventSignedIn         EventKind = "SIGNED_IN"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventUserUpdated      EventKind = "USER_UPDATED"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// Event is a session change observed by the identity layer. SID scopes the
// event to one server-side session store.
type Event struct {
	SID     string
	Kind    EventKind
	Session *Session
}
