// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

const reservationQueryTimeout = 10 * time.Second

type Handlers struct {
	booking *booking.Service
}

func NewHandlers(svc *booking.Service) *Handlers {
	return &Handlers{booking: svc}
}

type reservationResponse struct {
	Reservation queries.Reservation `json:"reservation"`
}

type availabilityResponse struct {
	Date            string          `json:"date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	AvailableCourts []queries.Court `json:"available_courts"`
}

// POST /api/v1/reservations
func (h *Handlers) HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.Actor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req booking.Request
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body: " + err.Error(), Err: err})
		return
	}
	req.RequesterID = actor.ID

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	created, err := h.booking.Book(ctx, req)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, reservationResponse{Reservation: created})
}

// GET /api/v1/reservations?state=pending,confirmed
func (h *Handlers) HandleReservationList(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.Actor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	states, err := parseStates(r.URL.Query()["state"])
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	items, err := h.booking.ListReservations(r.Context(), actor, states...)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reservations": items})
}

// parseStates accepts repeated and comma separated state values.
func parseStates(values []string) ([]models.ReservationState, error) {
	var states []models.ReservationState
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			state, err := models.ParseReservationState(raw)
			if err != nil {
				return nil, apiutil.FieldError{Field: "state", Reason: "must be a reservation state"}
			}
			states = append(states, state)
		}
	}
	return states, nil
}

// GET /api/v1/reservations/{id}
func (h *Handlers) HandleReservationGet(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.Actor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	detail, err := h.booking.GetReservation(r.Context(), actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reservation": detail})
}

// POST /api/v1/reservations/{id}/cancel
func (h *Handlers) HandleReservationCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.Cancel)
}

// POST /api/v1/reservations/{id}/confirm
func (h *Handlers) HandleReservationConfirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.Confirm)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, booking.Actor, int64) (queries.Reservation, error)) {
	actor, err := apiutil.Actor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	updated, err := apply(ctx, actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reservationResponse{Reservation: updated})
}

// GET /api/v1/availability?date=YYYY-MM-DD&start_time=HH:MM&end_time=HH:MM
func (h *Handlers) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, start, end := query.Get("date"), query.Get("start_time"), query.Get("end_time")

	courts, err := h.booking.AvailableCourts(r.Context(), date, start, end)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, availabilityResponse{
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		AvailableCourts: courts,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}
