package clock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{raw: "08:00", want: 480},
		{raw: "19:30", want: 1170},
		{raw: " 10:15 ", want: 615},
		{raw: "24:00", want: 1440},
		{raw: "24:30", wantErr: true},
		{raw: "8:00", wantErr: true},
		{raw: "08:60", wantErr: true},
		{raw: "0800", wantErr: true},
		{raw: "ab:cd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tt.raw, got, tt.want)
			}
			if got.String() != TimeOfDay(tt.want).String() {
				t.Fatalf("String() = %q", got.String())
			}
		})
	}
}

func TestClockUsesOperatingTimezone(t *testing.T) {
	// 02:30 UTC on the 21st is still the evening of the 20th in Santiago.
	fake := clockwork.NewFakeClockAt(time.Date(2024, 12, 21, 2, 30, 0, 0, time.UTC))
	clk, err := New(fake, "America/Santiago")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := clk.FormatDate(clk.Now()); got != "2024-12-20" {
		t.Fatalf("today = %s, want 2024-12-20", got)
	}
	today := clk.Today()
	if today.Hour() != 0 || today.Minute() != 0 {
		t.Fatalf("Today() = %v, want local midnight", today)
	}

	fake.Advance(2 * time.Hour)
	if got := clk.FormatDate(clk.Now()); got != "2024-12-21" {
		t.Fatalf("after advance today = %s, want 2024-12-21", got)
	}
}

func TestClockDateArithmetic(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clk := NewInLocation(clockwork.NewFakeClock(), loc)

	date, err := clk.ParseDate("2025-01-06")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if date.Weekday() != time.Monday {
		t.Fatalf("2025-01-06 weekday = %s", date.Weekday())
	}

	if got := clk.FormatDate(clk.AddDays(date, -7)); got != "2024-12-30" {
		t.Fatalf("AddDays(-7) = %s", got)
	}

	at := clk.At(date, MustTimeOfDay("10:30"))
	if at.Hour() != 10 || at.Minute() != 30 || clk.FormatDate(at) != "2025-01-06" {
		t.Fatalf("At() = %v", at)
	}

	if _, err := clk.ParseDate("2025-02-30"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	if _, err := New(clockwork.NewFakeClock(), "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
