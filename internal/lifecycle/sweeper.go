// internal/lifecycle/sweeper.go
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
)

// ReminderDays are the days-ahead offsets that get a reminder.
var ReminderDays = []int{3, 1}

// Result counts what one sweep did.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Sweeper ages reservations through the time-driven part of the lifecycle.
// Each reservation is handled in its own transaction and every state change
// is conditional, so running a sweep twice is harmless.
type Sweeper struct {
	db       *db.DB
	clock    *clock.Clock
	notifier notify.Notifier
}

func NewSweeper(database *db.DB, clk *clock.Clock, notifier notify.Notifier) (*Sweeper, error) {
	if database == nil {
		return nil, fmt.Errorf("lifecycle sweeper requires database")
	}
	if clk == nil {
		return nil, fmt.Errorf("lifecycle sweeper requires clock")
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Sweeper{db: database, clock: clk, notifier: notifier}, nil
}

// CompleteFinished moves confirmed reservations whose end has passed to
// completed and returns their equipment.
func (s *Sweeper) CompleteFinished(ctx context.Context) (Result, error) {
	logger := log.Ctx(ctx).With().Str("sweep", "complete_finished").Logger()
	now := s.clock.Now()

	candidates, err := s.db.Queries.FindReservations(ctx, queries.ReservationFilter{
		DateTo: s.clock.FormatDate(s.clock.Today()),
		States: []models.ReservationState{models.StateConfirmed},
	})
	if err != nil {
		return Result{}, fmt.Errorf("list confirmed reservations: %w", err)
	}

	var res Result
	for _, r := range candidates {
		end, err := s.endOf(r)
		if err != nil {
			logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("Skipping reservation with unreadable slot")
			res.Failed++
			continue
		}
		if end.After(now) {
			continue
		}
		moved, err := s.retire(ctx, r.ID, models.StateConfirmed, models.StateCompleted)
		if err != nil {
			logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("Failed to complete reservation")
			res.Failed++
			continue
		}
		if !moved {
			res.Skipped++
			continue
		}
		res.Processed++
	}

	logger.Info().Int("completed", res.Processed).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("Completion sweep finished")
	return res, nil
}

// ArchiveUnconfirmed archives pending reservations dated tomorrow, plus any
// earlier ones left behind while the service was down. Equipment is returned;
// the charge is not refunded.
func (s *Sweeper) ArchiveUnconfirmed(ctx context.Context) (Result, error) {
	logger := log.Ctx(ctx).With().Str("sweep", "archive_unconfirmed").Logger()
	tomorrow := s.clock.AddDays(s.clock.Today(), 1)

	candidates, err := s.db.Queries.FindReservations(ctx, queries.ReservationFilter{
		DateTo: s.clock.FormatDate(tomorrow),
		States: []models.ReservationState{models.StatePending},
	})
	if err != nil {
		return Result{}, fmt.Errorf("list pending reservations: %w", err)
	}

	var res Result
	for _, r := range candidates {
		moved, err := s.retire(ctx, r.ID, models.StatePending, models.StateArchived)
		if err != nil {
			logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("Failed to archive reservation")
			res.Failed++
			continue
		}
		if !moved {
			res.Skipped++
			continue
		}
		res.Processed++
	}

	logger.Info().Int("archived", res.Processed).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("Archival sweep finished")
	return res, nil
}

// retire flips one reservation from -> to and returns its stock in the same
// transaction. It reports false when another run got there first.
func (s *Sweeper) retire(ctx context.Context, id int64, from, to models.ReservationState) (bool, error) {
	var moved bool
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		n, err := txdb.Queries.UpdateReservationState(ctx, queries.UpdateReservationStateParams{
			ID:   id,
			From: []models.ReservationState{from},
			To:   to,
		})
		if err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		if n == 0 {
			return nil
		}
		moved = true
		if _, err := booking.ReturnStock(ctx, txdb.Queries, id); err != nil {
			return err
		}
		return nil
	})
	return moved, err
}

func (s *Sweeper) endOf(r queries.Reservation) (time.Time, error) {
	day, err := s.clock.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("reservation %d date %q: %w", r.ID, r.Date, err)
	}
	end, err := clock.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("reservation %d end %q: %w", r.ID, r.EndTime, err)
	}
	return s.clock.At(day, end), nil
}
