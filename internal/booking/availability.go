package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

// AvailableCourts lists, by name, the courts with no active reservation
// overlapping [start, end) on date.
func (s *Service) AvailableCourts(ctx context.Context, date, start, end string) ([]queries.Court, error) {
	day, window, err := s.parseWindow(date, start, end)
	if err != nil {
		return nil, err
	}
	if window.End <= window.Start {
		return nil, validationError("end_time must be after start_time")
	}
	if err := checkOperatingDay(day); err != nil {
		return nil, err
	}
	if err := checkOperatingHours(window, s.policy); err != nil {
		return nil, err
	}

	q := s.db.Queries
	occupied, err := q.FindReservations(ctx, queries.ReservationFilter{
		Date:          day.Format(clock.DateLayout),
		ExcludeStates: models.FreeingStates,
		Overlapping:   window.filterWindow(),
	})
	if err != nil {
		return nil, internalError("failed to load reservations", fmt.Errorf("find reservations: %w", err))
	}
	taken := make(map[int64]bool, len(occupied))
	for _, r := range occupied {
		taken[r.CourtID] = true
	}

	courts, err := q.ListCourts(ctx)
	if err != nil {
		return nil, internalError("failed to load courts", fmt.Errorf("list courts: %w", err))
	}
	available := make([]queries.Court, 0, len(courts))
	for _, c := range courts {
		if !taken[c.ID] {
			available = append(available, c)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i].Name < available[j].Name })
	return available, nil
}

func (s *Service) parseWindow(date, start, end string) (time.Time, Window, error) {
	if date == "" || start == "" || end == "" {
		return time.Time{}, Window{}, validationError("date, start_time and end_time are required")
	}
	day, err := s.clock.ParseDate(date)
	if err != nil {
		return time.Time{}, Window{}, validationError("date must be a valid YYYY-MM-DD date")
	}
	from, err := clock.ParseTimeOfDay(start)
	if err != nil {
		return time.Time{}, Window{}, validationError("start_time must be HH:MM")
	}
	to, err := clock.ParseTimeOfDay(end)
	if err != nil {
		return time.Time{}, Window{}, validationError("end_time must be HH:MM")
	}
	return day, Window{Start: from, End: to}, nil
}

// startOf is the instant the reservation begins in the operating timezone.
func (s *Service) startOf(r queries.Reservation) (time.Time, error) {
	day, err := s.clock.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, &Error{Kind: KindInvariantViolation, Message: "stored reservation has an unreadable date", Err: err}
	}
	w, err := reservationWindow(r)
	if err != nil {
		return time.Time{}, &Error{Kind: KindInvariantViolation, Message: "stored reservation has an unreadable window", Err: err}
	}
	return s.clock.At(day, w.Start), nil
}
