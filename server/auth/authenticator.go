// Package auth issues and verifies the opaque session tokens handed to the
// browser at login. Tokens are signed, so holding one proves the server
// minted it; the session ID inside is the only capability it grants.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"
)

const (
	issuer = "botler"
	// Sessions are single-sitting; a generous ceiling covers multi-day use.
	tokenTTL = 7 * 24 * time.Hour

	// CookieName is the fallback token carrier for EventSource and websocket
	// requests that cannot set headers.
	CookieName = "botler_session"
)

// ErrInvalidToken is returned for missing, malformed, expired, or forged
// tokens. Callers map it to 401 without detail.
var ErrInvalidToken = errors.New("auth: invalid session token")

type claims struct {
	SessionID string `json:"sid"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies session tokens with a shared secret.
type Authenticator struct {
	secret []byte
}

// New creates an authenticator. An empty secret gets a random per-process
// one: tokens then die with the process, which suits an in-memory store.
func New(secret string) *Authenticator {
	if secret == "" {
		buf := make([]byte, 32)
		rand.Read(buf)
		secret = hex.EncodeToString(buf)
	}
	return &Authenticator{secret: []byte(secret)}
}

// Issue mints a token bound to the given session.
func (a *Authenticator) Issue(sessionID, name string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		SessionID: sessionID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and returns the session ID it is bound to.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok || c.SessionID == "" {
		return "", ErrInvalidToken
	}
	return c.SessionID, nil
}

// SessionFromRequest extracts and verifies the token on a request, checking
// the Authorization header first and the session cookie second.
func (a *Authenticator) SessionFromRequest(c *echo.Context) (string, error) {
	if header := c.Request().Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token != header && token != "" {
			return a.Verify(token)
		}
	}
	if cookie, err := c.Request().Cookie(CookieName); err == nil && cookie.Value != "" {
		return a.Verify(cookie.Value)
	}
	return "", ErrInvalidToken
}

// RequireSession is echo middleware that rejects unauthenticated requests
// and stashes the verified session ID in the request context.
func (a *Authenticator) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		sessionID, err := a.SessionFromRequest(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid session token")
		}
		c.Set(SessionIDContextKey, sessionID)
		return next(c)
	}
}

// SessionIDContextKey is where RequireSession stores the verified ID.
const SessionIDContextKey = "session-id"

// SessionID reads the verified session ID stashed by RequireSession.
func SessionID(c *echo.Context) string {
	sessionID, _ := c.Get(SessionIDContextKey).(string)
	return sessionID
}
