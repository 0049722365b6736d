package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/models"
)

const (
	authCookieName = "padelicious_auth"
	authSessionTTL = 8 * time.Hour
)

var (
	errAuthConfigMissing  = errors.New("auth configuration missing")
	errInvalidAuthCookie  = errors.New("invalid auth cookie")
	errInvalidCookieSig   = errors.New("invalid auth cookie signature")
	errAuthSessionExpired = errors.New("auth session expired")
)

type authSession struct {
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	ExpiresAt int64       `json:"exp"`
}

// Sessions issues and verifies the HMAC-signed auth cookie. The cookie
// carries the whole session, so no server-side store is needed.
type Sessions struct {
	secret []byte
	secure bool
	clock  clockwork.Clock
	ttl    time.Duration
}

// NewSessions builds a cookie signer. secure marks cookies Secure and should
// be false only in development.
func NewSessions(secretKey string, secure bool, clk clockwork.Clock) (*Sessions, error) {
	if secretKey == "" {
		return nil, errAuthConfigMissing
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Sessions{secret: []byte(secretKey), secure: secure, clock: clk, ttl: authSessionTTL}, nil
}

// SetAuthCookie writes a signed session cookie for user.
func (s *Sessions) SetAuthCookie(w http.ResponseWriter, user *authz.AuthUser) error {
	if w == nil || user == nil || user.ID == "" {
		return errors.New("auth session requires response and user")
	}

	expiresAt := s.clock.Now().Add(s.ttl)
	payload, err := json.Marshal(authSession{
		UserID:    user.ID,
		Role:      normalizeRole(user.Role),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    encodedPayload + "." + s.sign(encodedPayload),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

// ClearAuthCookie expires the session cookie.
func (s *Sessions) ClearAuthCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest returns the user of a valid session cookie, nil without a
// cookie, or an error for a tampered or expired one.
func (s *Sessions) UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	session, err := s.parseAuthCookie(r)
	if err != nil || session == nil {
		return nil, err
	}
	return &authz.AuthUser{ID: session.UserID, Role: session.Role}, nil
}

func (s *Sessions) parseAuthCookie(r *http.Request) (*authSession, error) {
	if r == nil {
		return nil, nil
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	encodedPayload, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return nil, errInvalidAuthCookie
	}
	if !hmac.Equal([]byte(signature), []byte(s.sign(encodedPayload))) {
		return nil, errInvalidCookieSig
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, err
	}
	var session authSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	if session.UserID == "" {
		return nil, errInvalidAuthCookie
	}
	session.Role = normalizeRole(session.Role)

	if session.ExpiresAt <= s.clock.Now().Unix() {
		return nil, errAuthSessionExpired
	}
	return &session, nil
}

func normalizeRole(role models.Role) models.Role {
	if role == models.RoleAdmin {
		return models.RoleAdmin
	}
	return models.RoleMember
}

func (s *Sessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
