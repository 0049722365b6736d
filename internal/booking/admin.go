package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

type BlockRequest struct {
	CourtID   int64  `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Block takes a court out of service for a window. The block is an
// admin-owned reservation with zero cost that occupies the slot like any
// other. It only counts against the court, never against the admin's own
// booking limits, and it may cover archived reservations.
func (s *Service) Block(ctx context.Context, actor Actor, req BlockRequest) (queries.Reservation, error) {
	if !actor.IsAdmin() {
		return queries.Reservation{}, newError(KindForbidden, "only administrators can block courts")
	}
	if req.CourtID <= 0 {
		return queries.Reservation{}, validationError("court_id is required")
	}
	day, window, err := s.parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return queries.Reservation{}, err
	}
	if err := checkSchedulingWindow(day, window, s.policy); err != nil {
		return queries.Reservation{}, err
	}
	if window.Minutes()%slotGranularity != 0 {
		return queries.Reservation{}, validationError("block length must be a multiple of %d minutes", slotGranularity)
	}
	date := s.clock.FormatDate(day)

	var created queries.Reservation
	err = s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		court, err := loadCourt(ctx, q, req.CourtID)
		if err != nil {
			return err
		}
		if _, err := loadUser(ctx, q, FormatRUT(actor.ID)); err != nil {
			return err
		}
		// Archived rows were never confirmed, so a block may take their slot.
		courtDay, err := s.activeReservations(ctx, q, queries.ReservationFilter{
			Date:          date,
			CourtID:       court.ID,
			ExcludeStates: []models.ReservationState{models.StateArchived},
		})
		if err != nil {
			return err
		}
		if err := checkCourtConflict(courtDay, window); err != nil {
			return err
		}
		created, err = q.CreateReservation(ctx, queries.CreateReservationParams{
			UserID:        FormatRUT(actor.ID),
			CourtID:       court.ID,
			Date:          date,
			StartTime:     window.Start.String(),
			EndTime:       window.End.String(),
			EquipmentCost: decimal.Zero,
			TotalCost:     decimal.Zero,
			State:         models.StateBlocked,
		})
		if err != nil {
			return storeError("failed to store block", fmt.Errorf("create block: %w", err))
		}
		return nil
	})
	if err != nil {
		return queries.Reservation{}, asError(err)
	}

	log.Ctx(ctx).Info().
		Str("actor_id", actor.ID).
		Int64("reservation_id", created.ID).
		Int64("court_id", created.CourtID).
		Str("date", created.Date).
		Str("start_time", created.StartTime).
		Str("end_time", created.EndTime).
		Msg("Court blocked")
	return created, nil
}

// Unblock deletes a block. Reservations in any other state are refused.
func (s *Service) Unblock(ctx context.Context, actor Actor, reservationID int64) error {
	if !actor.IsAdmin() {
		return newError(KindForbidden, "only administrators can unblock courts")
	}
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		n, err := q.DeleteBlockedReservation(ctx, reservationID)
		if err != nil {
			return internalError("failed to delete block", fmt.Errorf("delete block %d: %w", reservationID, err))
		}
		if n == 1 {
			return nil
		}
		reservation, err := loadReservation(ctx, q, reservationID)
		if err != nil {
			return err
		}
		return newError(KindConflict, "reservation %d is %s, only blocks can be deleted", reservationID, reservation.State)
	})
	if err != nil {
		return asError(err)
	}
	log.Ctx(ctx).Info().Str("actor_id", actor.ID).Int64("reservation_id", reservationID).Msg("Court unblocked")
	return nil
}
