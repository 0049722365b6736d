package booking

import (
	"sort"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

// booked pairs a persisted reservation with its parsed window.
type booked struct {
	reservation queries.Reservation
	window      Window
}

func toBooked(rows []queries.Reservation) ([]booked, error) {
	out := make([]booked, 0, len(rows))
	for _, r := range rows {
		w, err := reservationWindow(r)
		if err != nil {
			return nil, &Error{Kind: KindInvariantViolation, Message: "stored reservation has an unreadable window", Err: err}
		}
		if w.End <= w.Start {
			return nil, newError(KindInvariantViolation, "reservation %d ends before it starts", r.ID)
		}
		out = append(out, booked{reservation: r, window: w})
	}
	return out, nil
}

// checkCourtConflict rejects w when any active reservation on the court
// overlaps it. Admin blocks get their own message.
func checkCourtConflict(courtDay []booked, w Window) error {
	for _, b := range courtDay {
		if !Overlaps(b.window, w) {
			continue
		}
		if b.reservation.State == models.StateBlocked {
			return newError(KindConflict, "court is blocked for maintenance between %s and %s", b.window.Start, b.window.End)
		}
		return newError(KindConflict, "slot already reserved between %s and %s", b.window.Start, b.window.End)
	}
	return nil
}

// checkOwnConflict rejects w when the requester already plays elsewhere at
// the same time.
func checkOwnConflict(ownDay []booked, w Window) error {
	for _, b := range ownDay {
		if Overlaps(b.window, w) {
			return newError(KindConflict, "you already have a reservation between %s and %s", b.window.Start, b.window.End)
		}
	}
	return nil
}

func checkDailyCap(ownDay []booked, w Window, capMinutes int) error {
	total := w.Minutes()
	for _, b := range ownDay {
		total += b.window.Minutes()
	}
	if total > capMinutes {
		return validationError("daily limit of %d minutes exceeded (%d requested in total)", capMinutes, total)
	}
	return nil
}

// checkNoGap keeps a member's same-day reservations contiguous: between the
// new slot and the nearest own reservation before or after it, every
// 30-minute block must already be taken, either on the requested court or by
// the member elsewhere. Touching an own reservation always passes.
func checkNoGap(ownDay, courtDay []booked, w Window) error {
	if len(ownDay) == 0 {
		return nil
	}

	var before, after []Window
	for _, b := range ownDay {
		if Adjacent(b.window, w) {
			return nil
		}
		switch {
		case b.window.End <= w.Start:
			before = append(before, b.window)
		case b.window.Start >= w.End:
			after = append(after, b.window)
		}
	}

	timeline := make([]Window, 0, len(ownDay)+len(courtDay))
	for _, b := range ownDay {
		timeline = append(timeline, b.window)
	}
	for _, b := range courtDay {
		timeline = append(timeline, b.window)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Start < timeline[j].Start })

	if len(before) > 0 {
		latestEnd := before[0].End
		for _, b := range before[1:] {
			if b.End > latestEnd {
				latestEnd = b.End
			}
		}
		if covered(timeline, latestEnd, w.Start) {
			return nil
		}
	}
	if len(after) > 0 {
		earliestStart := after[0].Start
		for _, a := range after[1:] {
			if a.Start < earliestStart {
				earliestStart = a.Start
			}
		}
		if covered(timeline, w.End, earliestStart) {
			return nil
		}
	}

	return validationError("reservations on the same day cannot leave an unbooked gap between them")
}

// covered walks [from, to) in 30-minute blocks and reports whether every
// block lies inside some window of the timeline.
func covered(timeline []Window, from, to clock.TimeOfDay) bool {
	for t := from; t < to; t += slotGranularity {
		block := Window{Start: t, End: t + slotGranularity}
		if block.End > to {
			block.End = to
		}
		if !coveredBlock(timeline, block) {
			return false
		}
	}
	return true
}

func coveredBlock(timeline []Window, block Window) bool {
	for _, w := range timeline {
		if w.Start <= block.Start && w.End >= block.End {
			return true
		}
	}
	return false
}
