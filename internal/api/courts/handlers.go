// internal/api/courts/handlers.go
package courts

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
)

const (
	courtsQueryTimeout = 5 * time.Second
	defaultMaxPlayers  = 4
)

type Handlers struct {
	queries *queries.Queries
}

func NewHandlers(q *queries.Queries) *Handlers {
	return &Handlers{queries: q}
}

type createCourtRequest struct {
	Name       string `json:"name"`
	HourlyCost string `json:"hourly_cost"`
	MaxPlayers int64  `json:"max_players"`
}

func (req createCourtRequest) params() (queries.CreateCourtParams, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return queries.CreateCourtParams{}, apiutil.FieldError{Field: "name", Reason: "is required"}
	}
	cost, err := apiutil.ParseMoney(req.HourlyCost, "hourly_cost")
	if err != nil {
		return queries.CreateCourtParams{}, err
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}
	if maxPlayers < 1 {
		return queries.CreateCourtParams{}, apiutil.FieldError{Field: "max_players", Reason: "must be at least 1"}
	}
	return queries.CreateCourtParams{Name: name, HourlyCost: cost, MaxPlayers: maxPlayers}, nil
}

// POST /api/v1/courts
func (h *Handlers) HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if _, err := apiutil.AdminActor(r); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req createCourtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	params, err := req.params()
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := h.queries.CreateCourt(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "a court with that name already exists", Err: err})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", court.ID).Str("name", court.Name).Str("hourly_cost", court.HourlyCost.StringFixed(2)).Msg("Court created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"court": court}); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts
func (h *Handlers) HandleCourtList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := h.queries.ListCourts(ctx)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if courts == nil {
		courts = []queries.Court{}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write courts response")
	}
}
