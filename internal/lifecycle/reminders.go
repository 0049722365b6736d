// internal/lifecycle/reminders.go
package lifecycle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

// SendReminders notifies owners of confirmed reservations starting in 3 days
// and in 1 day. A reservation's flag is set only after its notification
// succeeded, so failures are retried on the next run.
func (s *Sweeper) SendReminders(ctx context.Context) (Result, error) {
	var total Result
	for _, days := range ReminderDays {
		res, err := s.sendRemindersFor(ctx, days)
		total.Processed += res.Processed
		total.Skipped += res.Skipped
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Sweeper) sendRemindersFor(ctx context.Context, daysAhead int) (Result, error) {
	logger := log.Ctx(ctx).With().Str("sweep", "send_reminders").Int("days_ahead", daysAhead).Logger()
	target := s.clock.FormatDate(s.clock.AddDays(s.clock.Today(), daysAhead))

	unsent := false
	filter := queries.ReservationFilter{
		Date:   target,
		States: []models.ReservationState{models.StateConfirmed},
	}
	if daysAhead == 3 {
		filter.Reminder3dSet = &unsent
	} else {
		filter.Reminder1dSet = &unsent
	}

	due, err := s.db.Queries.FindReservations(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("list reservations due a %d-day reminder: %w", daysAhead, err)
	}
	if len(due) == 0 {
		return Result{}, nil
	}

	var (
		res  Result
		sent []int64
	)
	courts := make(map[int64]queries.Court)
	for _, r := range due {
		reservationLogger := logger.With().Int64("reservation_id", r.ID).Str("user_id", r.UserID).Logger()

		user, err := s.db.Queries.GetUser(ctx, r.UserID)
		if err != nil {
			reservationLogger.Error().Err(err).Msg("Failed to load reservation owner for reminder")
			res.Failed++
			continue
		}
		court, ok := courts[r.CourtID]
		if !ok {
			court, err = s.db.Queries.GetCourt(ctx, r.CourtID)
			if err != nil {
				reservationLogger.Error().Err(err).Msg("Failed to load court for reminder")
				res.Failed++
				continue
			}
			courts[r.CourtID] = court
		}

		if err := s.notifier.SendReminder(reservationLogger.WithContext(ctx), user, r, court, daysAhead); err != nil {
			reservationLogger.Error().Err(err).Msg("Failed to send reminder")
			res.Failed++
			continue
		}
		sent = append(sent, r.ID)
	}

	if len(sent) > 0 {
		n, err := s.db.Queries.MarkRemindersSent(ctx, queries.MarkRemindersSentParams{IDs: sent, DaysAhead: daysAhead})
		if err != nil {
			return res, fmt.Errorf("mark %d-day reminders sent: %w", daysAhead, err)
		}
		res.Processed = int(n)
	}

	logger.Info().Int("sent", res.Processed).Int("failed", res.Failed).Msg("Reminder sweep finished")
	return res, nil
}
