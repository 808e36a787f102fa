// Package session holds per-user ephemeral state: the authentication flag
// and the visual settings applied to generated codes. State lives only in
// process memory and dies with the process.
package session

import (
	"sync"

	"github.com/minaqr/botserver/internal/qr"
)

const (
	defaultFillColor       = "black"
	defaultBackgroundColor = "white"
)

// Session is one user's state. Email is set iff Authenticated is true.
type Session struct {
	Authenticated   bool
	Email           string
	Quality         qr.Quality
	FillColor       string
	BackgroundColor string
	// EmblemKey is the object-storage key of the user's emblem image,
	// or "" for none.
	EmblemKey string
}

func defaultSession() Session {
	return Session{
		Quality:         qr.QualityNormal,
		FillColor:       defaultFillColor,
		BackgroundColor: defaultBackgroundColor,
	}
}

// Store keeps sessions keyed by the transport's user id. An absent entry
// means "not authenticated, default configuration". All operations are
// atomic with respect to each other.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]Session)}
}

// Get returns a copy of the user's session, or the default session if none
// exists. Callers never observe partial mutations.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(userID)
}

// Login marks the user authenticated and binds the account email. Visual
// settings are left untouched.
func (s *Store) Login(userID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.current(userID)
	sess.Authenticated = true
	sess.Email = email
	s.sessions[userID] = sess
}

// Logout drops the user's session entirely, returning them to the default
// unauthenticated state.
func (s *Store) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// ResetVisuals restores the default visual settings while preserving the
// authentication flag and bound email.
func (s *Store) ResetVisuals(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.current(userID)
	fresh := defaultSession()
	fresh.Authenticated = sess.Authenticated
	fresh.Email = sess.Email
	s.sessions[userID] = fresh
}

// ToggleQuality flips between normal and high quality and returns the new
// tier.
func (s *Store) ToggleQuality(userID int64) qr.Quality {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.current(userID)
	if sess.Quality == qr.QualityHigh {
		sess.Quality = qr.QualityNormal
	} else {
		sess.Quality = qr.QualityHigh
	}
	s.sessions[userID] = sess
	return sess.Quality
}

// SetColors sets the module and background colors.
func (s *Store) SetColors(userID int64, fill, background string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.current(userID)
	sess.FillColor = fill
	sess.BackgroundColor = background
	s.sessions[userID] = sess
}

// SetEmblem records the storage key of the user's emblem image.
func (s *Store) SetEmblem(userID int64, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.current(userID)
	sess.EmblemKey = key
	s.sessions[userID] = sess
}

// current must be called with mu held.
func (s *Store) current(userID int64) Session {
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	return defaultSession()
}
