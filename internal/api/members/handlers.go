// internal/api/members/handlers.go
package members

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

const membersQueryTimeout = 5 * time.Second

type Handlers struct {
	queries *queries.Queries
	booking *booking.Service
}

func NewHandlers(q *queries.Queries, svc *booking.Service) *Handlers {
	return &Handlers{queries: q, booking: svc}
}

type registerRequest struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type depositRequest struct {
	NationalID string `json:"national_id,omitempty"`
	Amount     string `json:"amount"`
}

func (req registerRequest) validate() (queries.CreateUserParams, error) {
	if !booking.ValidRUT(req.NationalID) {
		return queries.CreateUserParams{}, apiutil.FieldError{Field: "national_id", Reason: "is not a valid RUT"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return queries.CreateUserParams{}, apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return queries.CreateUserParams{}, apiutil.FieldError{Field: "email", Reason: "is not a valid address"}
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return queries.CreateUserParams{}, apiutil.FieldError{Field: "password", Reason: strings.TrimPrefix(err.Error(), "password ")}
	}
	return queries.CreateUserParams{
		NationalID: booking.FormatRUT(req.NationalID),
		Name:       name,
		Email:      email,
		Role:       models.RoleMember,
		Balance:    decimal.Zero,
	}, nil
}

// POST /api/v1/members
func (h *Handlers) HandleMemberRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	params, err := req.validate()
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	params.PasswordHash, err = auth.HashPassword(req.Password)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), membersQueryTimeout)
	defer cancel()

	user, err := h.queries.CreateUser(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "a member with that national ID or email already exists", Err: err})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().Str("user_id", user.NationalID).Msg("Member registered")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"user": user}); err != nil {
		logger.Error().Err(err).Msg("Failed to write member response")
	}
}

// POST /api/v1/wallet/deposits
func (h *Handlers) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.Actor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req depositRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	amount, err := apiutil.ParseMoney(req.Amount, "amount")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), membersQueryTimeout)
	defer cancel()

	user, err := h.booking.Deposit(ctx, actor, req.NationalID, amount)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"user": user}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write deposit response")
	}
}
