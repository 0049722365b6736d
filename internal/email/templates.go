package email

import (
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Subject string
	Body    string
}

type ReservationDetails struct {
	VenueName     string
	ReservationID int64
	CourtName     string
	Date          string
	TimeRange     string
	TotalCost     string
}

// FormatSlot renders the reservation date and window for humans, e.g.
// "Monday, Jan 6, 2025" and "10:00 - 11:30 -03".
func FormatSlot(start, end time.Time) (string, string) {
	date := start.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s %s", start.Format("15:04"), end.Format("15:04"), start.Format("MST"))
	return date, timeRange
}

func BuildConfirmationEmail(details ReservationDetails, cancelLeadDays int) Message {
	venue := venueName(details.VenueName)
	lines := []string{
		"Your court reservation has been received.",
		"",
		fmt.Sprintf("Reservation: #%d", details.ReservationID),
		fmt.Sprintf("Court: %s", orTBD(details.CourtName)),
		fmt.Sprintf("Date: %s", orTBD(details.Date)),
		fmt.Sprintf("Time: %s", orTBD(details.TimeRange)),
		fmt.Sprintf("Charged: %s", orTBD(details.TotalCost)),
		"",
		"Please confirm your reservation before the day of play; unconfirmed reservations are released the evening before.",
		fmt.Sprintf("Cancellations are refunded in full up to %d days before the start time.", cancelLeadDays),
	}
	return Message{
		Subject: fmt.Sprintf("Court Reservation Received - %s", venue),
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildReminderEmail(details ReservationDetails, daysAhead int) Message {
	venue := venueName(details.VenueName)
	when := fmt.Sprintf("in %d days", daysAhead)
	if daysAhead == 1 {
		when = "tomorrow"
	}
	lines := []string{
		fmt.Sprintf("Reminder: your court reservation is %s.", when),
		"",
		fmt.Sprintf("Reservation: #%d", details.ReservationID),
		fmt.Sprintf("Court: %s", orTBD(details.CourtName)),
		fmt.Sprintf("Date: %s", orTBD(details.Date)),
		fmt.Sprintf("Time: %s", orTBD(details.TimeRange)),
	}
	return Message{
		Subject: fmt.Sprintf("Upcoming Court Reservation - %s", venue),
		Body:    strings.Join(lines, "\n"),
	}
}

func venueName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "your club"
	}
	return name
}

func orTBD(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "TBD"
	}
	return value
}
