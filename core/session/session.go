package session

import (
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Claims represents the authorization claims transmitted via a JWT.
// They are decoded without signature verification: the client only
// reads them for display and expiry checks, the server stays the
// single authority on validity.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Session holds the process-wide authentication state: the current token
// pair, the decoded claims and the expiry-episode bookkeeping flags.
// It is constructed once at application start and lives for the process
// lifetime; Clear() resets it on logout.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	claims       *Claims

	// expiredNotified guarantees the "Session Expired" notification fires
	// at most once per unresolved expiry episode. It survives Clear() and
	// resets only once a refresh or login succeeds.
	expiredNotified bool

	// returnTo is the pre-expiry location persisted for a post-login redirect.
	returnTo string
}

func New() *Session {
	return &Session{}
}

// SetTokens installs a new token pair and decodes the access token claims.
// A successful authentication resolves any pending expiry episode.
func (s *Session) SetTokens(access, refresh string) error {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(access, claims); err != nil {
		return errors.Wrap(err, "parsing access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
	s.claims = claims
	s.expiredNotified = false
	return nil
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// Claims returns the decoded access token claims; nil when logged out.
func (s *Session) Claims() *Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

// Expired reports whether the access token claims have passed their expiry.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return true
	}
	return time.Now().Unix() >= s.claims.ExpiresAt
}

// MarkExpiredNotified flips the expiredNotified flag and reports whether the
// caller won the right to emit the "Session Expired" notification.
func (s *Session) MarkExpiredNotified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredNotified {
		return false
	}
	s.expiredNotified = true
	return true
}

// ResetExpiredNotified ends the current expiry episode after a successful refresh.
func (s *Session) ResetExpiredNotified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiredNotified = false
}

// SetReturnTo persists the pre-expiry location for a post-login redirect.
// Locations already under the auth area are not worth returning to.
func (s *Session) SetReturnTo(location string) {
	if location == "" || strings.HasPrefix(location, "/auth") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnTo = location
}

// PopReturnTo returns the persisted location and clears it.
func (s *Session) PopReturnTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := s.returnTo
	s.returnTo = ""
	return loc
}

// Clear wipes the authenticated state. The expiredNotified flag is left
// untouched: the expiry episode only resolves on a successful refresh or login.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.claims = nil
}
