package auth

import (
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/ratelimit"
)

var errInvalidCredentials = apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "invalid email or password"}

type Handlers struct {
	queries    *queries.Queries
	sessions   *Sessions
	limiter    *ratelimit.Limiter
	trustProxy bool
}

func NewHandlers(q *queries.Queries, sessions *Sessions, limiter *ratelimit.Limiter, trustProxy bool) *Handlers {
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	return &Handlers{queries: q, sessions: sessions, limiter: limiter, trustProxy: trustProxy}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User queries.User `json:"user"`
}

// HandleLogin handles POST /api/v1/auth/login.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "email and password", Reason: "are required"})
		return
	}

	ip := ratelimit.GetClientIP(r, h.trustProxy)
	if result := h.limiter.Check(email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded(r.Context(), email, ip, result.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "too many login attempts, try again later"})
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.limiter.RecordFailure(email, ip)
			apiutil.WriteError(w, r, errInvalidCredentials)
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}
	if !VerifyPassword(user.PasswordHash, req.Password) {
		if h.limiter.RecordFailure(email, ip) {
			logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(email)).Str("ip", ip).Msg("Login locked out")
		}
		apiutil.WriteError(w, r, errInvalidCredentials)
		return
	}
	h.limiter.Reset(email)

	if err := h.sessions.SetAuthCookie(w, &authz.AuthUser{ID: user.NationalID, Role: user.Role}); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().Str("user_id", user.NationalID).Str("role", string(user.Role)).Msg("User logged in")
	if err := apiutil.WriteJSON(w, http.StatusOK, userResponse{User: user}); err != nil {
		logger.Error().Err(err).Msg("Failed to write login response")
	}
}

// HandleLogout handles POST /api/v1/auth/logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /api/v1/auth/me.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	authUser, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	user, err := h.queries.GetUser(r.Context(), authUser.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.sessions.ClearAuthCookie(w)
			apiutil.WriteError(w, r, authz.ErrUnauthenticated)
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, userResponse{User: user}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write user response")
	}
}
