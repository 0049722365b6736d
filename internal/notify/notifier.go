// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/db/queries"
)

// Notifier delivers member-facing booking messages. Implementations must be
// safe for concurrent use; callers treat errors as log-only.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error
	SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error
}

// Multi fans a notification out to every driver and joins their errors.
type Multi []Notifier

func (m Multi) SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error {
	var errs []error
	for _, n := range m {
		if err := n.SendBookingConfirmation(ctx, user, reservation, court); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error {
	var errs []error
	for _, n := range m {
		if err := n.SendReminder(ctx, user, reservation, court, daysAhead); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the context logger. It is the default
// driver in development.
type LogNotifier struct{}

func (LogNotifier) SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error {
	log.Ctx(ctx).Info().
		Str("user_id", user.NationalID).
		Str("email", user.Email).
		Int64("reservation_id", reservation.ID).
		Str("court", court.Name).
		Str("date", reservation.Date).
		Str("start_time", reservation.StartTime).
		Str("end_time", reservation.EndTime).
		Msg("Booking confirmation")
	return nil
}

func (LogNotifier) SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error {
	log.Ctx(ctx).Info().
		Str("user_id", user.NationalID).
		Str("email", user.Email).
		Int64("reservation_id", reservation.ID).
		Str("court", court.Name).
		Str("date", reservation.Date).
		Int("days_ahead", daysAhead).
		Msg("Reservation reminder")
	return nil
}
