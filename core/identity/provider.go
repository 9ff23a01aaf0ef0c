// Package identity verifies who a user is and tracks their sessions.
// Observers learn about sessions starting and ending through Provider.Subscribe.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIdentityExists     = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// EventKind tells whether an identity became present or absent.
type EventKind int

const (
	IdentityAbsent EventKind = iota
	IdentityPresent
)

func (k EventKind) String() string {
	if k == IdentityPresent {
		return "present"
	}
	return "absent"
}

type (
	// Identity is a verified user, bound to one session.
	Identity struct {
		UID       string    `json:"uid"`
		Email     string    `json:"email"`
		SessionID string    `json:"session_id"`
		Token     string    `json:"token,omitempty"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	Event struct {
		Kind     EventKind
		Identity Identity
	}

	Listener func(Event)

	Subscription interface {
		Unsubscribe()
	}

	Provider interface {
		// CreateIdentity registers new credentials and opens a session for them.
		CreateIdentity(ctx context.Context, email, password string) (Identity, error)
		// VerifyIdentity checks credentials and opens a session.
		VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
		// Authenticate returns the identity of a live session token.
		Authenticate(ctx context.Context, token string) (Identity, error)
		// DestroySession ends a session. Ending an unknown session is not an error.
		DestroySession(ctx context.Context, sessionID string) error
		// ResetPassword replaces the password of existing credentials.
		ResetPassword(ctx context.Context, email, password string) error
		// Subscribe registers `l` to be notified of every session start and end.
		Subscribe(l Listener) Subscription
	}

	// Claims are the JWT claims of a session token: Subject is the identity UID and Id the session ID.
	Claims struct {
		Email string `json:"email"`
		jwt.StandardClaims
	}
)

func (id Identity) IsZero() bool { return id.UID == "" }
