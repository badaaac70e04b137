package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymclub/internal/identity"
)

// CookieName carries the server-side session id. The cookie holds nothing but
// an opaque id; tokens never leave the store.
const CookieName = "gc_session"

// Manager owns the session stores, one per browser session. It guarantees a
// store's event subscription is released exactly once, on removal.
type Manager struct {
	ids        identity.Service
	profiles   ProfileSource
	bus        identity.Bus
	timeouts   Timeouts
	idleExpiry time.Duration

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(ids identity.Service, profiles ProfileSource, bus identity.Bus, timeouts Timeouts, idleExpiry time.Duration) *Manager {
	return &Manager{
		ids:        ids,
		profiles:   profiles,
		bus:        bus,
		timeouts:   timeouts,
		idleExpiry: idleExpiry,
		stores:     make(map[string]*Store),
	}
}

// Lookup finds the store referenced by the request cookie, if any.
func (m *Manager) Lookup(r *http.Request) (*Store, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	m.mu.Lock()
	store, ok := m.stores[cookie.Value]
	m.mu.Unlock()

	if ok {
		store.Touch()
	}
	return store, ok
}

// Attach returns the request's store, creating one (and setting the cookie)
// for first contact. New stores start signed out; the bootstrap endpoint or a
// login settles them.
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request) *Store {
	if store, ok := m.Lookup(r); ok {
		return store
	}

	sid := uuid.NewString()
	store := NewStore(sid, m.ids, m.profiles, m.bus, m.timeouts)

	m.mu.Lock()
	m.stores[sid] = store
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return store
}

// Remove tears a store down and forgets it.
func (m *Manager) Remove(sid string) {
	m.mu.Lock()
	store, ok := m.stores[sid]
	delete(m.stores, sid)
	m.mu.Unlock()

	if ok {
		store.Close()
	}
}

// RunJanitor evicts stores idle past the expiry until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleExpiry)

	m.mu.Lock()
	var expired []*Store
	for sid, store := range m.stores {
		if store.LastSeen().Before(cutoff) {
			expired = append(expired, store)
			delete(m.stores, sid)
		}
	}
	m.mu.Unlock()

	for _, store := range expired {
		store.Close()
	}
	if len(expired) > 0 {
		slog.Info("evicted idle sessions", "count", len(expired))
	}
}

// Close tears down every store; used on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}
