// Package session holds the signed-in identity. The app receives a
// *Session at construction instead of reading a global user record.
package session

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
)

// ErrSignedOut is returned by operations that need a user.
var ErrSignedOut = errors.New("not signed in")

// Session is the current identity. A nil user means signed out.
type Session struct {
	mu   gosync.RWMutex
	user *model.User
}

// User returns a copy of the signed-in user.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// SignedIn reports whether a user is present.
func (s *Session) SignedIn() bool {
	_, ok := s.User()
	return ok
}

func (s *Session) set(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// Manager moves a Session through its login and logout lifecycle and keeps
// the persisted record in step.
type Manager struct {
	store store.Store
	sess  *Session
	log   logrus.FieldLogger
}

// NewManager returns a manager with an empty session.
func NewManager(st store.Store, log logrus.FieldLogger) *Manager {
	return &Manager{store: st, sess: &Session{}, log: log}
}

// Session returns the managed session.
func (m *Manager) Session() *Session {
	return m.sess
}

// Load restores a persisted user, if any. A missing record leaves the
// session signed out and is not an error.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	u, err := m.store.LoadUser(ctx)
	if errors.Is(err, store.ErrNoSession) {
		m.sess.set(nil)
		return m.sess, nil
	}
	if err != nil {
		return m.sess, fmt.Errorf("restoring session: %w", err)
	}
	m.sess.set(u)
	m.log.WithField("email", u.Email).Info("session restored")
	return m.sess, nil
}

// Login persists u and makes it the current user.
func (m *Manager) Login(ctx context.Context, u model.User) error {
	if err := m.store.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	m.sess.set(&u)
	m.log.WithField("email", u.Email).Info("signed in")
	return nil
}

// Logout clears the persisted record and the current user. The in-memory
// session is cleared even when the store fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.sess.set(nil)
	if err := m.store.ClearUser(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	m.log.Info("signed out")
	return nil
}
