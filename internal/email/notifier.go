package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db/queries"
)

const sendTimeout = 5 * time.Second

// Sender delivers one plain-text message. SESClient is the production
// implementation.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Notifier turns booking notifications into emails.
type Notifier struct {
	sender         Sender
	clock          *clock.Clock
	venue          string
	cancelLeadDays int
}

func NewNotifier(sender Sender, clk *clock.Clock, venue string, cancelLeadDays int) *Notifier {
	return &Notifier{sender: sender, clock: clk, venue: venue, cancelLeadDays: cancelLeadDays}
}

func (n *Notifier) SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error {
	details, err := n.details(reservation, court)
	if err != nil {
		return err
	}
	return n.send(ctx, user, BuildConfirmationEmail(details, n.cancelLeadDays))
}

func (n *Notifier) SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error {
	details, err := n.details(reservation, court)
	if err != nil {
		return err
	}
	return n.send(ctx, user, BuildReminderEmail(details, daysAhead))
}

func (n *Notifier) details(reservation queries.Reservation, court queries.Court) (ReservationDetails, error) {
	date, err := n.clock.ParseDate(reservation.Date)
	if err != nil {
		return ReservationDetails{}, fmt.Errorf("reservation %d date: %w", reservation.ID, err)
	}
	start, err := clock.ParseTimeOfDay(reservation.StartTime)
	if err != nil {
		return ReservationDetails{}, fmt.Errorf("reservation %d start: %w", reservation.ID, err)
	}
	end, err := clock.ParseTimeOfDay(reservation.EndTime)
	if err != nil {
		return ReservationDetails{}, fmt.Errorf("reservation %d end: %w", reservation.ID, err)
	}
	day, timeRange := FormatSlot(n.clock.At(date, start), n.clock.At(date, end))
	return ReservationDetails{
		VenueName:     n.venue,
		ReservationID: reservation.ID,
		CourtName:     court.Name,
		Date:          day,
		TimeRange:     timeRange,
		TotalCost:     reservation.TotalCost.StringFixed(2),
	}, nil
}

func (n *Notifier) send(ctx context.Context, user queries.User, msg Message) error {
	recipient := strings.TrimSpace(user.Email)
	if recipient == "" {
		return fmt.Errorf("user %s has no email address", user.NationalID)
	}
	// Sends outlive the request or job that triggered them.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	return n.sender.Send(sendCtx, recipient, msg.Subject, msg.Body)
}
