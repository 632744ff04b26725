// Package session keeps server-side session records.  The browser only
// holds a signed cookie with the session id; everything else (who is
// logged in, the CSRF token) stays here so logout can invalidate it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/university-events/internal/model"
)

// ErrNotFound is returned when the id is unknown or the record expired.
var ErrNotFound = errors.New("session not found")

// Session is one client's server-side state.  UserID is zero for an
// anonymous session that has not logged in yet.
type Session struct {
	ID        string     `json:"id"`
	UserID    uint64     `json:"user_id,omitempty"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	CSRFToken string     `json:"csrf_token,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// New returns an anonymous session with a fresh random id.
func New(ttl time.Duration) Session {
	now := time.Now().UTC()
	return Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// Authenticated reports whether a user is logged in on this session.
func (s Session) Authenticated() bool { return s.UserID != 0 }

// User rebuilds the principal stored on the session.
func (s Session) User() model.User {
	return model.User{ID: s.UserID, Name: s.Name, Email: s.Email, Role: s.Role}
}

// Store persists sessions keyed by id.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
