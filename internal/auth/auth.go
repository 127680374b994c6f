// Package auth talks to the hosted auth service (GoTrue) and keeps the
// resulting sessions server-side, one per browser.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/playperu/tahaddi/internal/trivia"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrExchangeFailed = errors.New("login code exchange failed")
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// SessionProvider is the auth surface the game core depends on.
type SessionProvider interface {
	// CurrentSession returns ErrNoSession when nobody is signed in.
	CurrentSession(ctx context.Context) (*Session, error)
	// OnChange calls fn with the new session, or nil after sign-out.
	OnChange(fn func(*Session)) (cancel func())
	SignOut(ctx context.Context) error
}

// Identify resolves the inventory identity for whoever holds p. Any failure
// to find a session yields the guest identity.
func Identify(ctx context.Context, p SessionProvider) trivia.Player {
	sess, err := p.CurrentSession(ctx)
	if err != nil || sess == nil || sess.User.ID == "" {
		return trivia.Guest()
	}
	return trivia.Player{ID: sess.User.ID, AccessToken: sess.AccessToken}
}
