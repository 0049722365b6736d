// internal/api/admin/handlers.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/scheduler"
)

const adminQueryTimeout = 10 * time.Second

// JobStats reports scheduler counters.
type JobStats interface {
	Stats() []scheduler.JobStats
}

type Handlers struct {
	booking *booking.Service
	jobs    JobStats
}

func NewHandlers(svc *booking.Service, jobs JobStats) *Handlers {
	return &Handlers{booking: svc, jobs: jobs}
}

// POST /api/v1/admin/blocks
func (h *Handlers) HandleBlockCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.AdminActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req booking.BlockRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	block, err := h.booking.Block(ctx, actor, req)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"reservation": block})
}

// DELETE /api/v1/admin/blocks/{id}
func (h *Handlers) HandleBlockDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.AdminActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	if err := h.booking.Unblock(ctx, actor, id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/admin/reservations/{id}/cancel
func (h *Handlers) HandleReservationCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.AdminCancel)
}

// POST /api/v1/admin/reservations/{id}/no-show
func (h *Handlers) HandleReservationNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.MarkNoShow)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, booking.Actor, int64) (queries.Reservation, error)) {
	actor, err := apiutil.AdminActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	updated, err := apply(ctx, actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"reservation": updated})
}

// GET /api/v1/admin/jobs
func (h *Handlers) HandleJobStats(w http.ResponseWriter, r *http.Request) {
	if _, err := apiutil.AdminActor(r); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	stats := []scheduler.JobStats{}
	if h.jobs != nil {
		stats = h.jobs.Stats()
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"jobs": stats})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}
