package booking

import (
	"strings"
	"testing"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

func win(start, end string) Window {
	return Window{Start: clock.MustTimeOfDay(start), End: clock.MustTimeOfDay(end)}
}

func bookedAt(start, end string, state models.ReservationState) booked {
	return booked{
		reservation: queries.Reservation{StartTime: start, EndTime: end, State: state},
		window:      win(start, end),
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Window
		want bool
	}{
		{"identical", win("10:00", "11:30"), win("10:00", "11:30"), true},
		{"partial", win("10:00", "11:30"), win("10:30", "12:00"), true},
		{"contained", win("10:00", "13:00"), win("11:00", "12:30"), true},
		{"touching end", win("10:00", "11:30"), win("11:30", "13:00"), false},
		{"touching start", win("11:30", "13:00"), win("10:00", "11:30"), false},
		{"disjoint", win("08:00", "09:30"), win("12:00", "13:30"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
			if !Overlaps(tt.a, tt.a) {
				t.Fatal("a window must overlap itself")
			}
		})
	}
}

func TestCheckCourtConflict(t *testing.T) {
	day := []booked{
		bookedAt("10:00", "11:30", models.StatePending),
		bookedAt("14:00", "16:00", models.StateBlocked),
	}

	err := checkCourtConflict(day, win("10:30", "12:00"))
	if !IsKind(err, KindConflict) || !strings.Contains(err.Error(), "already reserved between 10:00 and 11:30") {
		t.Fatalf("expected reserved conflict, got %v", err)
	}

	err = checkCourtConflict(day, win("15:00", "16:30"))
	if !IsKind(err, KindConflict) || !strings.Contains(err.Error(), "blocked for maintenance") {
		t.Fatalf("expected maintenance conflict, got %v", err)
	}

	if err := checkCourtConflict(day, win("11:30", "13:00")); err != nil {
		t.Fatalf("adjacent slot should not conflict: %v", err)
	}
}

func TestCheckDailyCap(t *testing.T) {
	own := []booked{bookedAt("08:00", "09:30", models.StateConfirmed)}

	if err := checkDailyCap(own, win("09:30", "11:00"), 180); err != nil {
		t.Fatalf("exactly at cap should pass: %v", err)
	}
	err := checkDailyCap(own, win("09:30", "11:30"), 180)
	if !IsKind(err, KindValidation) || !strings.Contains(err.Error(), "210 requested") {
		t.Fatalf("expected cap violation, got %v", err)
	}
}

func TestCheckNoGap(t *testing.T) {
	tests := []struct {
		name    string
		own     []booked
		court   []booked
		window  Window
		wantErr bool
	}{
		{
			name:   "first reservation of the day",
			window: win("12:00", "13:30"),
		},
		{
			name:   "touching own reservation after",
			own:    []booked{bookedAt("08:00", "09:30", models.StatePending)},
			window: win("09:30", "11:00"),
		},
		{
			name:   "touching own reservation before",
			own:    []booked{bookedAt("18:30", "20:00", models.StatePending)},
			window: win("17:00", "18:30"),
		},
		{
			name:    "gap after own morning slot",
			own:     []booked{bookedAt("08:00", "09:30", models.StatePending)},
			window:  win("10:00", "11:30"),
			wantErr: true,
		},
		{
			name:    "gap before own evening slot",
			own:     []booked{bookedAt("18:30", "20:00", models.StatePending)},
			window:  win("16:30", "18:00"),
			wantErr: true,
		},
		{
			name:   "gap filled by others on the court",
			own:    []booked{bookedAt("08:00", "09:30", models.StatePending)},
			court:  []booked{bookedAt("09:30", "11:00", models.StateConfirmed)},
			window: win("11:00", "12:30"),
		},
		{
			name:    "gap partly filled",
			own:     []booked{bookedAt("08:00", "09:30", models.StatePending)},
			court:   []booked{bookedAt("09:30", "10:30", models.StateConfirmed)},
			window:  win("11:00", "12:30"),
			wantErr: true,
		},
		{
			name: "one side covered is enough",
			own: []booked{
				bookedAt("08:00", "09:30", models.StatePending),
				bookedAt("16:00", "17:30", models.StatePending),
			},
			court:  []booked{bookedAt("09:30", "11:00", models.StateConfirmed)},
			window: win("11:00", "12:30"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkNoGap(tt.own, tt.court, tt.window)
			if tt.wantErr {
				if !IsKind(err, KindValidation) {
					t.Fatalf("expected gap validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("checkNoGap: %v", err)
			}
		})
	}
}

func TestToBookedRejectsInvertedWindow(t *testing.T) {
	_, err := toBooked([]queries.Reservation{{ID: 7, StartTime: "12:00", EndTime: "10:00"}})
	if !IsKind(err, KindInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}
