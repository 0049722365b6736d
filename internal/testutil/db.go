package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

// Valid RUTs for fixtures.
const (
	MemberID      = "12345678-5"
	OtherMemberID = "22222222-2"
	AdminID       = "11111111-1"
)

// Santiago is the venue timezone used throughout the tests.
var Santiago = mustLoad("America/Santiago")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// NewClock returns a venue clock frozen at Friday 2024-12-20 10:00 local,
// which makes Monday 2025-01-06 a bookable date.
func NewClock(t *testing.T) (*clock.Clock, *clockwork.FakeClock) {
	t.Helper()
	return NewClockAt(t, time.Date(2024, 12, 20, 10, 0, 0, 0, Santiago))
}

// NewClockAt returns a venue clock frozen at now.
func NewClockAt(t *testing.T, now time.Time) (*clock.Clock, *clockwork.FakeClock) {
	t.Helper()
	fake := clockwork.NewFakeClockAt(now)
	return clock.NewInLocation(fake, Santiago), fake
}

// CreateUser inserts a user with the given balance. The email is derived
// from the national ID.
func CreateUser(t *testing.T, database *db.DB, nationalID string, role models.Role, balance string) queries.User {
	t.Helper()
	user, err := database.Queries.CreateUser(context.Background(), queries.CreateUserParams{
		NationalID:   nationalID,
		Name:         "User " + nationalID,
		Email:        nationalID + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		Balance:      decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("create user %s: %v", nationalID, err)
	}
	return user
}

// CreateCourt inserts a four-player court.
func CreateCourt(t *testing.T, database *db.DB, name, hourlyCost string) queries.Court {
	t.Helper()
	court, err := database.Queries.CreateCourt(context.Background(), queries.CreateCourtParams{
		Name:       name,
		HourlyCost: decimal.RequireFromString(hourlyCost),
		MaxPlayers: 4,
	})
	if err != nil {
		t.Fatalf("create court %s: %v", name, err)
	}
	return court
}

// CreateEquipment inserts an equipment item.
func CreateEquipment(t *testing.T, database *db.DB, name string, category models.EquipmentCategory, stock int64, unitCost string) queries.Equipment {
	t.Helper()
	item, err := database.Queries.CreateEquipment(context.Background(), queries.CreateEquipmentParams{
		Name:     name,
		Category: category,
		Stock:    stock,
		UnitCost: decimal.RequireFromString(unitCost),
	})
	if err != nil {
		t.Fatalf("create equipment %s: %v", name, err)
	}
	return item
}

// CreateReservation inserts a reservation row directly, bypassing booking
// rules.
func CreateReservation(t *testing.T, database *db.DB, params queries.CreateReservationParams) queries.Reservation {
	t.Helper()
	if params.State == "" {
		params.State = models.StatePending
	}
	res, err := database.Queries.CreateReservation(context.Background(), params)
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return res
}

// Balance reads a user's current balance.
func Balance(t *testing.T, database *db.DB, nationalID string) decimal.Decimal {
	t.Helper()
	user, err := database.Queries.GetUser(context.Background(), nationalID)
	if err != nil {
		t.Fatalf("get user %s: %v", nationalID, err)
	}
	return user.Balance
}

// Stock reads an equipment item's current stock.
func Stock(t *testing.T, database *db.DB, id int64) int64 {
	t.Helper()
	item, err := database.Queries.GetEquipment(context.Background(), id)
	if err != nil {
		t.Fatalf("get equipment %d: %v", id, err)
	}
	return item.Stock
}
