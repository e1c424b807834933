package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"thena/internal/domain"
)

// SessionGate tracks who is logged in and drives the magic-link flow.
// It is the single writer of the cached session; anything rendering
// auth state reads through it.
type SessionGate struct {
	api domain.DirectoryAPI
	log zerolog.Logger

	mu  sync.Mutex
	cur *domain.Session
}

func NewSessionGate(api domain.DirectoryAPI, log zerolog.Logger) *SessionGate {
	return &SessionGate{api: api, log: log}
}

// Current returns the cached session, nil when logged out.
func (g *SessionGate) Current() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cur
}

func (g *SessionGate) LoggedIn() bool { return g.Current() != nil }

// Refresh asks the backend who we are. Any failure, auth or transport,
// degrades to logged-out rather than surfacing an error: an unreachable
// backend and a missing cookie look the same to the caller.
func (g *SessionGate) Refresh(ctx context.Context) *domain.Session {
	s, err := g.api.Me(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			g.log.Debug().Err(err).Msg("session refresh failed")
		}
		s = nil
	}
	g.mu.Lock()
	g.cur = s
	g.mu.Unlock()
	return s
}

// RequestLink validates the login form locally, then asks the backend to
// issue a magic link. In dev mode the backend echoes the link back and it
// is returned for direct use.
func (g *SessionGate) RequestLink(ctx context.Context, email, displayName string) (string, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if !strings.Contains(email, "@") {
		return "", &domain.ValidationError{Field: "email", Msg: "adresse invalide"}
	}
	if utf8.RuneCountInString(displayName) < 2 {
		return "", &domain.ValidationError{Field: "pseudo", Msg: "2 caractères minimum"}
	}
	return g.api.RequestMagicLink(ctx, email, displayName)
}

// Verify redeems a magic link (or bare token) and refreshes the session.
func (g *SessionGate) Verify(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return &domain.ValidationError{Field: "lien", Msg: "lien requis"}
	}
	if err := g.api.VerifyMagicLink(ctx, link); err != nil {
		return err
	}
	if g.Refresh(ctx) == nil {
		return domain.ErrUnauthorized
	}
	return nil
}

// Logout clears the cached session. The server call is best effort: the
// local state is dropped even when the backend cannot be reached.
func (g *SessionGate) Logout(ctx context.Context) {
	if err := g.api.Logout(ctx); err != nil {
		g.log.Debug().Err(err).Msg("logout call failed")
	}
	g.Expire()
}

// Expire drops the cached session without touching the backend. Called
// when a write comes back 401: the cookie died server-side.
func (g *SessionGate) Expire() {
	g.mu.Lock()
	g.cur = nil
	g.mu.Unlock()
}
