package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mylaundry/internal/models"
	"mylaundry/internal/storage"
)

// TokenValidity is how long a stored token is trusted before the user
// must log in again. The API does not report expiry, so the client
// computes it at login time.
const TokenValidity = 2 * 24 * time.Hour

// ErrNotAuthenticated is returned when an authenticated request is
// attempted without an active session.
var ErrNotAuthenticated = errors.New("not authenticated: please log in")

// Manager owns the authentication token's lifecycle: persistence,
// expiry, validation on startup and teardown on logout. Operations are
// mutually exclusive over the stored record.
type Manager struct {
	mu      sync.Mutex
	db      *storage.DB
	current *models.Session
	now     func() time.Time
}

// NewManager creates a Manager backed by the given local store.
func NewManager(db *storage.DB) *Manager {
	return &Manager{db: db, now: time.Now}
}

// Restore loads the persisted session, if any. An expired record is
// deleted and treated as no session; so is an unreadable store. A
// broken or stale record can never grant access.
func (m *Manager) Restore() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.db.GetSession()
	if err != nil {
		if !errors.Is(err, storage.ErrNoSession) {
			log.Printf("session restore: %v", err)
		}
		return nil
	}
	if !s.ExpiresAt.After(m.now()) {
		if err := m.db.DeleteSession(); err != nil {
			log.Printf("expired session cleanup: %v", err)
		}
		return nil
	}

	m.current = s
	return s
}

// Login records a freshly issued token with a client-computed expiry.
// If the record cannot be persisted the in-memory session is left
// untouched: access is only granted with a durable record behind it.
func (m *Manager) Login(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(TokenValidity)
	if err := m.db.SaveSession(token, expiresAt); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.current = &models.Session{Token: token, ExpiresAt: expiresAt}
	return nil
}

// Logout deletes the persisted record and deactivates the session. The
// in-memory session is cleared even if the delete fails: a stale token
// on disk is lower risk than appearing logged in without one.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.db.DeleteSession()
	m.current = nil
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentToken returns the active bearer token, or ErrNotAuthenticated
// when there is no session or it has expired since it was restored.
func (m *Manager) CurrentToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || !m.current.ExpiresAt.After(m.now()) {
		return "", ErrNotAuthenticated
	}
	return m.current.Token, nil
}

// Active reports whether a valid session is loaded.
func (m *Manager) Active() bool {
	_, err := m.CurrentToken()
	return err == nil
}
