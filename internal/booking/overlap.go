package booking

import (
	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db/queries"
)

// Window is a half-open [Start, End) span of one day.
type Window struct {
	Start clock.TimeOfDay
	End   clock.TimeOfDay
}

// Overlaps is the conflict predicate. Availability and booking both go
// through it (and through its SQL twin in queries.ReservationFilter).
func Overlaps(a, b Window) bool {
	return a.Start < b.End && a.End > b.Start
}

func (w Window) Minutes() int {
	return int(w.End - w.Start)
}

// Adjacent reports whether a and b touch without overlapping.
func Adjacent(a, b Window) bool {
	return a.End == b.Start || b.End == a.Start
}

func (w Window) filterWindow() *queries.TimeWindow {
	return &queries.TimeWindow{Start: w.Start.String(), End: w.End.String()}
}

func reservationWindow(r queries.Reservation) (Window, error) {
	start, err := clock.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return Window{}, err
	}
	end, err := clock.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}
