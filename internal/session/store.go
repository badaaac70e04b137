package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gymclub/internal/identity"
	"gymclub/internal/model"
	"gymclub/pkg/apierror"
)

// ProfileSource fetches the profile row backing an identity. Satisfied by
// repository.ProfileRepository.
type ProfileSource interface {
	GetByID(ctx context.Context, id string) (model.Profile, error)
}

type Timeouts struct {
	Init        time.Duration // bound on the bootstrap identity lookup
	SafetyValve time.Duration // unconditional loading release; > Init
	Profile     time.Duration // bound on a single profile fetch
	Refresh     time.Duration // bound on the manual-refresh identity lookup
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Init:        12 * time.Second,
		SafetyValve: 20 * time.Second,
		Profile:     8 * time.Second,
		Refresh:     8 * time.Second,
	}
}

// State is the read-only view consumers get of a session store. Copies only:
// holders can never mutate store state.
type State struct {
	SID       string
	Loading   bool
	Identity  *identity.Identity
	Profile   *model.Profile
	AuthError string
}

// Role resolves the effective role for this state. Pure and re-evaluated on
// every read; the second return is false when no session exists.
func (s State) Role() (model.Role, bool) {
	return ResolveRole(s.Identity, s.Profile)
}

// Store owns the {session, profile, loading, authError} tuple for one browser
// session. It is the only writer; everything else reads snapshots.
type Store struct {
	sid      string
	ids      identity.Service
	profiles ProfileSource
	bus      identity.Bus
	timeouts Timeouts

	mu         sync.Mutex
	closed     bool
	loading    bool
	session    *identity.Session
	profile    *model.Profile
	authErr    string
	inFlightID string
	lastSeen   time.Time

	unsubscribe  func()
	refreshTimer *time.Timer
}

func NewStore(sid string, ids identity.Service, profiles ProfileSource, bus identity.Bus, timeouts Timeouts) *Store {
	s := &Store{
		sid:      sid,
		ids:      ids,
		profiles: profiles,
		bus:      bus,
		timeouts: timeouts,
		loading:  true,
		lastSeen: time.Now(),
	}

	events, unsubscribe := bus.Subscribe()
	s.unsubscribe = unsubscribe
	go s.consumeEvents(events)

	return s
}

func (s *Store) SID() string { return s.sid }

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{SID: s.sid, Loading: s.loading, AuthError: s.authErr}
	if s.session != nil && s.session.Identity != nil {
		ident := *s.session.Identity
		state.Identity = &ident
	}
	if s.profile != nil {
		profile := *s.profile
		state.Profile = &profile
	}

	return state
}

// AccessToken returns the current bearer token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

func (s *Store) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Store) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Initialize establishes the session from whatever tokens the client
// retained. The identity lookup is raced against Timeouts.Init; a second,
// longer-lived valve forces loading=false at Timeouts.SafetyValve no matter
// what the inner call is doing. loading is released exactly once per call,
// through a single finalization path, whichever branch ran.
func (s *Store) Initialize(ctx context.Context, accessToken string, refreshToken string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	var once sync.Once
	finish := func() {
		once.Do(func() { s.setLoading(false) })
	}
	valve := time.AfterFunc(s.timeouts.SafetyValve, finish)
	defer valve.Stop()
	defer finish()

	sess, err := raceDeadline(ctx, s.timeouts.Init, model.ErrAuthTimeout, func(ctx context.Context) (*identity.Session, error) {
		return s.lookupSession(ctx, accessToken, refreshToken)
	})
	if err != nil {
		slog.Warn("session bootstrap failed", "sid", shorten(s.sid), "error", err)
		s.mu.Lock()
		if !s.closed {
			s.session = nil
			s.profile = nil
			s.authErr = err.Error()
		}
		s.mu.Unlock()
		return
	}

	if sess == nil {
		// No identity is not an error: the visitor is simply signed out.
		s.mu.Lock()
		if !s.closed {
			s.session = nil
			s.profile = nil
			s.authErr = ""
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = sess
	s.mu.Unlock()

	s.loadProfile(ctx, sess.Identity, false)
	s.scheduleRefresh(sess)
}

// accessTokenValidator is implemented by identity clients that can check a
// token locally against the project secret. A token that fails the local
// check can never be accepted remotely, so the /user round-trip is skipped.
type accessTokenValidator interface {
	ValidateAccessToken(token string) (*identity.Identity, error)
}

// lookupSession resolves tokens into a live session: a valid access token is
// queried directly, a stale one falls back to the refresh grant. (nil, nil)
// means no identity.
func (s *Store) lookupSession(ctx context.Context, accessToken string, refreshToken string) (*identity.Session, error) {
	if accessToken != "" {
		if v, ok := s.ids.(accessTokenValidator); ok {
			if _, err := v.ValidateAccessToken(accessToken); err != nil {
				if refreshToken == "" {
					return nil, err
				}
				return s.ids.RefreshSession(ctx, refreshToken)
			}
		}

		ident, err := s.ids.CurrentIdentity(ctx, accessToken)
		if err == nil && ident != nil {
			return &identity.Session{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				TokenType:    "bearer",
				Identity:     ident,
			}, nil
		}
		if err != nil && refreshToken == "" {
			return nil, err
		}
	}

	if refreshToken != "" {
		return s.ids.RefreshSession(ctx, refreshToken)
	}

	return nil, nil
}

// loadProfile fetches the profile row for ident under Timeouts.Profile.
// A transient failure during a refresh keeps the previously loaded profile so
// a network blip does not blank a good view; any failure records authError.
// Concurrent loads for the same identity (login plus its SIGNED_IN event) are
// collapsed into one.
func (s *Store) loadProfile(ctx context.Context, ident *identity.Identity, isRefresh bool) {
	if ident == nil {
		s.mu.Lock()
		if !s.closed {
			s.profile = nil
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlightID == ident.ID {
		s.mu.Unlock()
		return
	}
	s.inFlightID = ident.ID
	s.mu.Unlock()

	profile, err := raceDeadline(ctx, s.timeouts.Profile, model.ErrTimeoutExceeded, func(ctx context.Context) (model.Profile, error) {
		return s.profiles.GetByID(ctx, ident.ID)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlightID = ""
	if s.closed {
		return
	}

	if err != nil {
		s.authErr = err.Error()
		if !(isRefresh && isTransient(err)) {
			s.profile = nil
		}
		return
	}

	s.profile = &profile
	s.authErr = ""
}

// OnSessionEvent applies a session change pushed by the identity layer.
// Kinds outside the handled set are ignored so irrelevant events cannot
// trigger redundant profile refetches.
func (s *Store) OnSessionEvent(ctx context.Context, kind identity.EventKind, sess *identity.Session) {
	switch kind {
	case identity.EventSignedIn, identity.EventTokenRefreshed:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.session = sess
		s.mu.Unlock()

		var ident *identity.Identity
		if sess != nil {
			ident = sess.Identity
		}
		s.loadProfile(ctx, ident, true)
		s.scheduleRefresh(sess)
		s.setLoading(false)

	case identity.EventSignedOut:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.session = nil
		s.profile = nil
		s.loading = false
		s.stopRefreshLocked()
		s.mu.Unlock()

	default:
	}
}

// Login signs in with credentials and stores the returned session
// immediately, without waiting for the SIGNED_IN event. The profile load is
// left to that event. Failures reset loading and surface to the caller for
// inline display.
func (s *Store) Login(ctx context.Context, email string, password string) (*identity.Session, error) {
	s.setLoading(true)

	sess, err := s.ids.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.setLoading(false)
		return nil, err
	}

	s.mu.Lock()
	if !s.closed {
		s.session = sess
	}
	s.mu.Unlock()

	s.bus.Publish(identity.Event{SID: s.sid, Kind: identity.EventSignedIn, Session: sess})
	return sess, nil
}

// Signup registers a new identity with the member metadata attached, so a
// role hint exists before the profile row does. loading is reset only on
// failure: on success a session usually does not exist yet (email
// confirmation pending) and the follow-up events settle the state.
func (s *Store) Signup(ctx context.Context, req model.SignupRequest) (*identity.SignupResult, error) {
	s.setLoading(true)

	metadata := map[string]any{
		"nombre":            req.Nombre,
		"dni":               req.DNI,
		"fecha_vencimiento": req.FechaVencimiento,
		"rol":               string(model.RoleMember),
	}

	result, err := s.ids.SignUp(ctx, req.Email, req.Password, metadata)
	if err != nil {
		s.setLoading(false)
		return nil, err
	}

	if result.Session != nil {
		s.bus.Publish(identity.Event{SID: s.sid, Kind: identity.EventSignedIn, Session: result.Session})
	}

	return result, nil
}

// LoginWithMagicLink requests a passwordless sign-in link. Delivery outcome
// is the identity service's problem; only dispatch failures surface.
func (s *Store) LoginWithMagicLink(ctx context.Context, email string, redirectTo string) error {
	return s.ids.SignInWithMagicLink(ctx, email, redirectTo)
}

// Logout delegates to the identity service. On failure local state is left
// unchanged and the error propagates, so the UI can retry instead of
// pretending sign-out happened.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := ""
	if s.session != nil {
		token = s.session.AccessToken
	}
	s.mu.Unlock()

	if err := s.ids.SignOut(ctx, token); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.closed {
		s.session = nil
		s.profile = nil
		s.stopRefreshLocked()
	}
	s.mu.Unlock()

	s.bus.Publish(identity.Event{SID: s.sid, Kind: identity.EventSignedOut})
	return nil
}

// RefreshProfile re-queries the current identity under Timeouts.Refresh and,
// if one is returned, reloads its profile as a refresh. loading is always
// released by the finalizer.
func (s *Store) RefreshProfile(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	s.mu.Lock()
	token := ""
	if s.session != nil {
		token = s.session.AccessToken
	}
	s.mu.Unlock()

	ident, err := raceDeadline(ctx, s.timeouts.Refresh, model.ErrAuthTimeout, func(ctx context.Context) (*identity.Identity, error) {
		return s.ids.CurrentIdentity(ctx, token)
	})
	if err != nil {
		s.mu.Lock()
		if !s.closed {
			s.authErr = err.Error()
		}
		s.mu.Unlock()
		return
	}
	if ident == nil {
		return
	}

	s.loadProfile(ctx, ident, true)
}

// Close tears the store down. The liveness flag turns continuations of any
// in-flight call into no-ops, and the event subscription is released so the
// bus cannot reach freed state.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopRefreshLocked()
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) consumeEvents(events <-chan identity.Event) {
	for e := range events {
		if e.SID != s.sid {
			continue
		}
		s.OnSessionEvent(context.Background(), e.Kind, e.Session)
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	if !s.closed {
		s.loading = v
	}
	s.mu.Unlock()
}

// scheduleRefresh arms the silent-refresh timer ahead of token expiry,
// replacing any previous timer.
func (s *Store) scheduleRefresh(sess *identity.Session) {
	if sess == nil || sess.RefreshToken == "" {
		return
	}

	refreshToken := sess.RefreshToken
	lead := identity.RefreshLead(sess.ExpiresIn)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopRefreshLocked()
	s.refreshTimer = time.AfterFunc(lead, func() { s.silentRefresh(refreshToken) })
	s.mu.Unlock()
}

func (s *Store) silentRefresh(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeouts.Refresh)
	defer cancel()

	next, err := s.ids.RefreshSession(ctx, refreshToken)
	if err != nil {
		slog.Warn("silent token refresh failed", "sid", shorten(s.sid), "error", err)
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusUnauthorized {
			s.bus.Publish(identity.Event{SID: s.sid, Kind: identity.EventSignedOut})
		}
		return
	}

	s.bus.Publish(identity.Event{SID: s.sid, Kind: identity.EventTokenRefreshed, Session: next})
}

func (s *Store) stopRefreshLocked() {
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
}

// isTransient classifies failures that should not blank previously loaded
// state: local deadline losses and network-class errors.
func isTransient(err error) bool {
	if errors.Is(err, model.ErrTimeoutExceeded) || errors.Is(err, model.ErrAuthTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if apierror.IsTimeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func shorten(sid string) string {
	if len(sid) <= 8 {
		return sid
	}
	return sid[:8]
}
