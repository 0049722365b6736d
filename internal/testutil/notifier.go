package testutil

import (
	"context"
	"sync"

	"github.com/codr1/Padelicious/internal/db/queries"
)

// Notification is one call seen by RecordingNotifier.
type Notification struct {
	Kind          string
	UserID        string
	ReservationID int64
	DaysAhead     int
}

// RecordingNotifier records every send. Fail decides per reservation whether
// the send returns an error; a nil Fail always succeeds.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
	Fail  func(reservationID int64) error
}

func (n *RecordingNotifier) SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error {
	return n.record(Notification{Kind: "confirmation", UserID: user.NationalID, ReservationID: reservation.ID})
}

func (n *RecordingNotifier) SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error {
	return n.record(Notification{Kind: "reminder", UserID: user.NationalID, ReservationID: reservation.ID, DaysAhead: daysAhead})
}

func (n *RecordingNotifier) record(call Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	if n.Fail != nil {
		return n.Fail(call.ReservationID)
	}
	return nil
}

// Calls returns a copy of the recorded notifications.
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}
