// Package adminauth implements the admin console's password login and
// bearer session tokens, plus a per-IP rolling login-attempt limiter.
package adminauth

import (
	"errors"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/crypt/hashing"
	"github.com/ElectronicCats/uvc-fingerprint-server/crypt/token"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/types/collections"
)

const (
	maxLoginAttempts   = 5
	loginWindowSeconds = 60
	sessionTokenBytes  = 32
	sessionTTL         = 8 * time.Hour
)

var (
	// ErrRateLimited means the calling IP has exceeded the login-attempt
	// window and must wait before trying again.
	ErrRateLimited = errors.New("adminauth: too many login attempts")
	// ErrInvalidPassword means the password did not match the configured hash.
	ErrInvalidPassword = errors.New("adminauth: invalid password")
	// ErrInvalidToken means verify/logout was called with an unknown or
	// expired session token.
	ErrInvalidToken = errors.New("adminauth: invalid or expired token")
)

type session struct {
	expires time.Time
}

// attemptWindow tracks one client IP's recent login attempts for the
// rolling rate-limit window.
type attemptWindow struct {
	at []time.Time
}

// AdminAuth holds the password hash to check against plus the in-memory
// session and rate-limit registries.
type AdminAuth struct {
	passwordHash func() (string, error)
	sessions     *collections.Map[string, session]
	attempts     *collections.Map[string, *attemptWindow]
}

// New builds an AdminAuth. passwordHash is called on every login attempt so
// a config reload always sees the current hash.
func New(passwordHash func() (string, error)) *AdminAuth {
	return &AdminAuth{
		passwordHash: passwordHash,
		sessions:     collections.NewMap[string, session](),
		attempts:     collections.NewMap[string, *attemptWindow](),
	}
}

// Login rate-limits by clientIP first, then verifies password against the
// configured Argon2id hash; on success it mints an 8-hour session token.
func (a *AdminAuth) Login(password, clientIP string) (string, error) {
	if a.isRateLimited(clientIP) {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		return "", ErrRateLimited
	}
	a.recordAttempt(clientIP)

	hash, err := a.passwordHash()
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return "", err
	}
	ok, _, err := hashing.Argon2IdComparePassword(password, hash)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return "", err
	}
	if !ok {
		metrics.LoginAttempts.WithLabelValues("invalid_password").Inc()
		return "", ErrInvalidPassword
	}

	raw, err := token.GenerateSecureBase64Token(sessionTokenBytes)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return "", err
	}
	a.sessions.Add(raw, session{expires: time.Now().Add(sessionTTL)})
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return raw, nil
}

// Verify reports whether sessionToken is a live, unexpired session,
// lazily sweeping it out if it has expired.
func (a *AdminAuth) Verify(sessionToken string) bool {
	s, err := a.sessions.Get(sessionToken)
	if err != nil {
		return false
	}
	if time.Now().After(s.expires) {
		a.sessions.Delete(sessionToken)
		return false
	}
	return true
}

// Logout removes a session token unconditionally.
func (a *AdminAuth) Logout(sessionToken string) {
	a.sessions.Delete(sessionToken)
}

func (a *AdminAuth) isRateLimited(clientIP string) bool {
	window, err := a.attempts.Get(clientIP)
	if err != nil {
		return false
	}
	return len(recentAttempts(window)) >= maxLoginAttempts
}

func (a *AdminAuth) recordAttempt(clientIP string) {
	window, err := a.attempts.Get(clientIP)
	if err != nil {
		window = &attemptWindow{}
	}
	window.at = append(recentAttempts(window), time.Now())
	a.attempts.Add(clientIP, window)
}

// recentAttempts returns only the timestamps still inside the rolling
// window, trimming the stale prefix.
func recentAttempts(w *attemptWindow) []time.Time {
	cutoff := time.Now().Add(-loginWindowSeconds * time.Second)
	kept := make([]time.Time, 0, len(w.at))
	for _, t := range w.at {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
