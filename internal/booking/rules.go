package booking

import (
	"strings"
	"time"

	"github.com/codr1/Padelicious/internal/clock"
)

const (
	minPlayerAge     = 14
	maxPlayerAge     = 130
	slotGranularity  = 30
	minSlotMinutes   = 90
	maxSlotMinutes   = 180
	defaultLeadDays  = 7
	defaultDailyCap  = 180
	defaultCancelLag = 7
)

// Policy holds the venue rules that come from configuration.
type Policy struct {
	OpensAt         clock.TimeOfDay
	ClosesAt        clock.TimeOfDay
	MinLeadDays     int
	CancelLeadDays  int
	DailyCapMinutes int
}

// DefaultPolicy is the 08:00-20:00, 7-day-lead, 180-minute-cap venue.
func DefaultPolicy() Policy {
	return Policy{
		OpensAt:         clock.MustTimeOfDay("08:00"),
		ClosesAt:        clock.MustTimeOfDay("20:00"),
		MinLeadDays:     defaultLeadDays,
		CancelLeadDays:  defaultCancelLag,
		DailyCapMinutes: defaultDailyCap,
	}
}

type PlayerInput struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	NationalID string `json:"national_id"`
	Age        int    `json:"age"`
}

type EquipmentInput struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// Request is a proposed booking as it arrives from the boundary.
type Request struct {
	CourtID     int64            `json:"court_id"`
	Date        string           `json:"date"`
	StartTime   string           `json:"start_time"`
	EndTime     string           `json:"end_time"`
	RequesterID string           `json:"-"`
	Players     []PlayerInput    `json:"players"`
	Equipment   []EquipmentInput `json:"equipment,omitempty"`
}

// Slot is the parsed court/date/window of a valid request.
type Slot struct {
	CourtID int64
	Date    time.Time
	Window  Window
}

// DateString renders the slot date in the operating timezone.
func (s Slot) DateString() string {
	return s.Date.Format(clock.DateLayout)
}

// ValidateRequest checks req against the venue rules without touching
// storage. Checks run in a fixed order and the first failure is returned.
func ValidateRequest(req Request, policy Policy, clk *clock.Clock) (Slot, error) {
	if err := requireFields(req); err != nil {
		return Slot{}, err
	}

	date, err := clk.ParseDate(req.Date)
	if err != nil {
		return Slot{}, validationError("date must be a valid YYYY-MM-DD date")
	}
	start, err := clock.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return Slot{}, validationError("start_time must be HH:MM")
	}
	end, err := clock.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return Slot{}, validationError("end_time must be HH:MM")
	}

	if !ValidRUT(req.RequesterID) {
		return Slot{}, validationError("requester national ID %q is not a valid RUT", req.RequesterID)
	}
	for i, p := range req.Players {
		if !ValidRUT(p.NationalID) {
			return Slot{}, validationError("player %d national ID %q is not a valid RUT", i+1, p.NationalID)
		}
		if p.Age < minPlayerAge || p.Age > maxPlayerAge {
			return Slot{}, validationError("player %d age must be between %d and %d", i+1, minPlayerAge, maxPlayerAge)
		}
	}

	window := Window{Start: start, End: end}
	if err := checkOperatingDay(date); err != nil {
		return Slot{}, err
	}
	if err := checkOperatingHours(window, policy); err != nil {
		return Slot{}, err
	}
	if err := checkDuration(window); err != nil {
		return Slot{}, err
	}
	if err := checkAlignment(window, policy); err != nil {
		return Slot{}, err
	}
	if err := checkLeadTime(date, policy, clk); err != nil {
		return Slot{}, err
	}

	return Slot{CourtID: req.CourtID, Date: date, Window: window}, nil
}

func requireFields(req Request) error {
	switch {
	case req.CourtID <= 0:
		return validationError("court_id is required")
	case strings.TrimSpace(req.Date) == "":
		return validationError("date is required")
	case strings.TrimSpace(req.StartTime) == "":
		return validationError("start_time is required")
	case strings.TrimSpace(req.EndTime) == "":
		return validationError("end_time is required")
	case strings.TrimSpace(req.RequesterID) == "":
		return validationError("requester is required")
	case len(req.Players) == 0:
		return validationError("at least one player is required")
	}
	for i, p := range req.Players {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Surname) == "" || strings.TrimSpace(p.NationalID) == "" {
			return validationError("player %d requires name, surname and national_id", i+1)
		}
	}
	for i, e := range req.Equipment {
		if e.ItemID <= 0 {
			return validationError("equipment %d requires item_id", i+1)
		}
		if e.Quantity < 1 {
			return validationError("equipment %d quantity must be at least 1", i+1)
		}
	}
	return nil
}

func checkOperatingDay(date time.Time) error {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return validationError("courts only open Monday to Friday; %s is a %s", date.Format(clock.DateLayout), date.Weekday())
	}
	return nil
}

func checkOperatingHours(w Window, policy Policy) error {
	if w.Start < policy.OpensAt || w.End > policy.ClosesAt || w.Start >= policy.ClosesAt {
		return validationError("reservations must fall between %s and %s", policy.OpensAt, policy.ClosesAt)
	}
	return nil
}

func checkDuration(w Window) error {
	minutes := w.Minutes()
	if minutes < minSlotMinutes || minutes > maxSlotMinutes {
		return validationError("reservations must last between %d and %d minutes", minSlotMinutes, maxSlotMinutes)
	}
	if minutes%slotGranularity != 0 {
		return validationError("reservation length must be a multiple of %d minutes", slotGranularity)
	}
	return nil
}

func checkAlignment(w Window, policy Policy) error {
	if (w.Start-policy.OpensAt).Minutes()%slotGranularity != 0 {
		return validationError("start_time must fall on a %d-minute boundary from %s", slotGranularity, policy.OpensAt)
	}
	return nil
}

func checkLeadTime(date time.Time, policy Policy, clk *clock.Clock) error {
	earliest := clk.AddDays(clk.Today(), policy.MinLeadDays)
	if date.Before(earliest) {
		return validationError("reservations must be made at least %d days in advance (earliest %s)", policy.MinLeadDays, earliest.Format(clock.DateLayout))
	}
	return nil
}

// checkSchedulingWindow applies only the operating day, hours and alignment
// rules. Availability queries and admin blocks use it.
func checkSchedulingWindow(date time.Time, w Window, policy Policy) error {
	if w.End <= w.Start {
		return validationError("end_time must be after start_time")
	}
	if err := checkOperatingDay(date); err != nil {
		return err
	}
	if err := checkOperatingHours(w, policy); err != nil {
		return err
	}
	return checkAlignment(w, policy)
}
