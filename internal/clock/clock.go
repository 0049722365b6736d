// Package clock resolves "now" and date arithmetic in the venue's single
// operating timezone.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" value.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid time %q: bad hour", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q: bad minute", raw)
	}
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("invalid time %q: past midnight", raw)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants and tests.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Minutes returns t as a count of minutes after midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Clock is the clock adapter every time-dependent component goes through.
type Clock struct {
	source   clockwork.Clock
	location *time.Location
}

// New builds a Clock over source in the named IANA timezone.
func New(source clockwork.Clock, timezone string) (*Clock, error) {
	if source == nil {
		source = clockwork.NewRealClock()
	}
	loc := time.Local
	if strings.TrimSpace(timezone) != "" {
		loaded, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		loc = loaded
	}
	return &Clock{source: source, location: loc}, nil
}

// NewInLocation builds a Clock with an already resolved location.
func NewInLocation(source clockwork.Clock, loc *time.Location) *Clock {
	if source == nil {
		source = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Clock{source: source, location: loc}
}

// Source exposes the underlying clockwork clock for the job scheduler.
func (c *Clock) Source() clockwork.Clock {
	return c.source
}

func (c *Clock) Location() *time.Location {
	return c.location
}

// Now returns the current instant in the operating timezone.
func (c *Clock) Now() time.Time {
	return c.source.Now().In(c.location)
}

// Today returns local midnight of the current date.
func (c *Clock) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// StartOfDay truncates t to local midnight.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	t = t.In(c.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location)
}

// AddDays moves a calendar date by n days; DST shifts do not leak into the
// result.
func (c *Clock) AddDays(date time.Time, n int) time.Time {
	date = date.In(c.location)
	return time.Date(date.Year(), date.Month(), date.Day()+n, 0, 0, 0, 0, c.location)
}

// ParseDate parses "YYYY-MM-DD" as local midnight.
func (c *Clock) ParseDate(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), c.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return parsed, nil
}

// FormatDate renders the calendar date of t in the operating timezone.
func (c *Clock) FormatDate(t time.Time) string {
	return t.In(c.location).Format(DateLayout)
}

// At combines a calendar date with a wall-clock time.
func (c *Clock) At(date time.Time, tod TimeOfDay) time.Time {
	date = date.In(c.location)
	return time.Date(date.Year(), date.Month(), date.Day(), 0, tod.Minutes(), 0, 0, c.location)
}
