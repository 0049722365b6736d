package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Cancel is the member-initiated cancellation. It requires ownership and at
// least CancelLeadDays before the start, returns the equipment and refunds
// the full snapshot cost.
func (s *Service) Cancel(ctx context.Context, actor Actor, reservationID int64) (queries.Reservation, error) {
	return s.cancel(ctx, actor, reservationID, models.StateCancelledByUser)
}

// AdminCancel cancels any pending, confirmed or blocked reservation without
// a lead-time restriction.
func (s *Service) AdminCancel(ctx context.Context, actor Actor, reservationID int64) (queries.Reservation, error) {
	if !actor.IsAdmin() {
		return queries.Reservation{}, newError(KindForbidden, "only administrators can cancel other members' reservations")
	}
	return s.cancel(ctx, actor, reservationID, models.StateCancelledByAdmin)
}

func (s *Service) cancel(ctx context.Context, actor Actor, reservationID int64, to models.ReservationState) (queries.Reservation, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "cancellation").
		Str("actor_id", actor.ID).
		Int64("reservation_id", reservationID).
		Logger()

	var (
		updated  queries.Reservation
		refunded bool
	)
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		reservation, err := loadReservation(ctx, q, reservationID)
		if err != nil {
			return err
		}
		if to == models.StateCancelledByUser && reservation.UserID != FormatRUT(actor.ID) {
			return newError(KindForbidden, "reservation %d belongs to another member", reservationID)
		}
		if reservation.State.IsCancelled() {
			return newError(KindConflict, "reservation %d is already cancelled", reservationID)
		}
		if reservation.State.IsTerminal() {
			return newError(KindConflict, "reservation %d is already %s", reservationID, reservation.State)
		}
		if !models.CanTransition(reservation.State, to) {
			return newError(KindConflict, "reservation %d cannot be cancelled while %s", reservationID, reservation.State)
		}

		if to == models.StateCancelledByUser {
			if err := s.checkCancelLead(reservation); err != nil {
				return err
			}
		}

		if err := s.transition(ctx, q, reservation.ID, to); err != nil {
			return err
		}

		if _, err := ReturnStock(ctx, q, reservation.ID); err != nil {
			return internalError("failed to return equipment", err)
		}
		if reservation.TotalCost.IsPositive() {
			if _, err := credit(ctx, q, reservation.UserID, reservation.TotalCost); err != nil {
				return err
			}
			refunded = true
		}

		updated, err = loadReservation(ctx, q, reservation.ID)
		return err
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Cancellation rejected")
		return queries.Reservation{}, asError(err)
	}

	logger.Info().
		Str("state", string(updated.State)).
		Bool("refunded", refunded).
		Str("refund", updated.TotalCost.StringFixed(2)).
		Msg("Reservation cancelled")
	return updated, nil
}

func (s *Service) checkCancelLead(reservation queries.Reservation) error {
	start, err := s.startOf(reservation)
	if err != nil {
		return err
	}
	deadline := start.AddDate(0, 0, -s.policy.CancelLeadDays)
	if s.clock.Now().After(deadline) {
		return validationError("reservations can only be cancelled at least %d days before they start", s.policy.CancelLeadDays)
	}
	return nil
}

// Confirm moves a pending reservation to confirmed. Only the owner or an
// administrator may confirm, and never after the slot has started.
func (s *Service) Confirm(ctx context.Context, actor Actor, reservationID int64) (queries.Reservation, error) {
	var updated queries.Reservation
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		reservation, err := loadReservation(ctx, q, reservationID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && reservation.UserID != FormatRUT(actor.ID) {
			return newError(KindForbidden, "reservation %d belongs to another member", reservationID)
		}
		if reservation.State != models.StatePending {
			return newError(KindConflict, "reservation %d is %s, only pending reservations can be confirmed", reservationID, reservation.State)
		}
		start, err := s.startOf(reservation)
		if err != nil {
			return err
		}
		if !s.clock.Now().Before(start) {
			return validationError("reservation %d has already started", reservationID)
		}
		if err := s.transition(ctx, q, reservation.ID, models.StateConfirmed); err != nil {
			return err
		}
		updated, err = loadReservation(ctx, q, reservation.ID)
		return err
	})
	if err != nil {
		return queries.Reservation{}, asError(err)
	}
	log.Ctx(ctx).Info().Int64("reservation_id", updated.ID).Str("actor_id", actor.ID).Msg("Reservation confirmed")
	return updated, nil
}

// MarkNoShow records that a confirmed reservation was not used. Equipment
// goes back to stock; the charge is kept.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, reservationID int64) (queries.Reservation, error) {
	if !actor.IsAdmin() {
		return queries.Reservation{}, newError(KindForbidden, "only administrators can record no-shows")
	}
	var updated queries.Reservation
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		reservation, err := loadReservation(ctx, q, reservationID)
		if err != nil {
			return err
		}
		if reservation.State != models.StateConfirmed {
			return newError(KindConflict, "reservation %d is %s, only confirmed reservations can be marked as no-show", reservationID, reservation.State)
		}
		if err := s.transition(ctx, q, reservation.ID, models.StateNoShow); err != nil {
			return err
		}
		if _, err := ReturnStock(ctx, q, reservation.ID); err != nil {
			return internalError("failed to return equipment", err)
		}
		updated, err = loadReservation(ctx, q, reservation.ID)
		return err
	})
	if err != nil {
		return queries.Reservation{}, asError(err)
	}
	log.Ctx(ctx).Info().Int64("reservation_id", updated.ID).Str("actor_id", actor.ID).Msg("Reservation marked as no-show")
	return updated, nil
}

func (s *Service) transition(ctx context.Context, q *queries.Queries, id int64, to models.ReservationState) error {
	n, err := q.UpdateReservationState(ctx, queries.UpdateReservationStateParams{
		ID:   id,
		From: models.SourcesOf(to),
		To:   to,
	})
	if err != nil {
		return internalError("failed to update reservation", fmt.Errorf("update state to %s: %w", to, err))
	}
	if n == 0 {
		return newError(KindConflict, "reservation %d changed state concurrently", id)
	}
	return nil
}
