package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestWithConnectionOptions(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		timeout int
		want    string
	}{
		{
			name:    "bare path",
			dsn:     "data/app.db",
			timeout: 2000,
			want:    "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=2000",
		},
		{
			name:    "existing query keeps caller options",
			dsn:     "file:app.db?_txlock=deferred",
			timeout: 0,
			want:    "file:app.db?_txlock=deferred&_fk=1&_busy_timeout=5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withConnectionOptions(tt.dsn, tt.timeout); got != tt.want {
				t.Fatalf("withConnectionOptions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewVerifiesSchema(t *testing.T) {
	database := newTestDB(t)
	if err := VerifySchema(context.Background(), database.DB); err != nil {
		t.Fatalf("VerifySchema: %v", err)
	}

	// Reopening an up-to-date database is not a migration error.
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first.Close()
	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second.Close()
}

func TestConstraintHelpers(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	court := queries.CreateCourtParams{Name: "Cancha Central", HourlyCost: decimal.NewFromInt(20000), MaxPlayers: 4}
	if _, err := database.Queries.CreateCourt(ctx, court); err != nil {
		t.Fatalf("CreateCourt: %v", err)
	}
	_, err := database.Queries.CreateCourt(ctx, court)
	if !IsUniqueViolation(err) || !IsConstraintViolation(err) {
		t.Fatalf("duplicate court name: got %v", err)
	}

	_, err = database.Queries.CreateReservation(ctx, queries.CreateReservationParams{
		UserID:    "12345678-5",
		CourtID:   1,
		Date:      "2025-01-06",
		StartTime: "10:00",
		EndTime:   "11:30",
		State:     models.StatePending,
	})
	if !IsConstraintViolation(err) || IsUniqueViolation(err) {
		t.Fatalf("unknown user should fail the foreign key: got %v", err)
	}

	if IsUniqueViolation(errors.New("plain")) || IsConstraintViolation(nil) {
		t.Fatal("non-sqlite errors are not constraint violations")
	}
}

func TestStockNeverNegative(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	item, err := database.Queries.CreateEquipment(ctx, queries.CreateEquipmentParams{
		Name:     "Racket",
		Category: models.CategoryRacket,
		Stock:    2,
		UnitCost: decimal.NewFromInt(3000),
	})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}

	n, err := database.Queries.DecrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: item.ID, Quantity: 3})
	if err != nil || n != 0 {
		t.Fatalf("over-decrement: n=%d err=%v", n, err)
	}
	n, err = database.Queries.DecrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: item.ID, Quantity: 2})
	if err != nil || n != 1 {
		t.Fatalf("decrement: n=%d err=%v", n, err)
	}
	got, err := database.Queries.GetEquipment(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("stock = %d, want 0", got.Stock)
	}

	_, err = database.ExecContext(ctx, `UPDATE equipment SET stock = -1 WHERE id = ?`, item.ID)
	if !IsConstraintViolation(err) {
		t.Fatalf("negative stock should violate CHECK, got %v", err)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.RunInTx(ctx, func(tx *DB) error {
		if _, err := tx.Queries.CreateCourt(ctx, queries.CreateCourtParams{Name: "Temporal", HourlyCost: decimal.Zero, MaxPlayers: 4}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx error = %v, want boom", err)
	}

	courts, err := database.Queries.ListCourts(ctx)
	if err != nil {
		t.Fatalf("ListCourts: %v", err)
	}
	if len(courts) != 0 {
		t.Fatalf("rolled back court persisted: %+v", courts)
	}
}

func TestReservationCascadesAndChecks(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if _, err := database.Queries.CreateUser(ctx, queries.CreateUserParams{
		NationalID:   "12345678-5",
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: "unused",
		Role:         models.RoleMember,
		Balance:      decimal.Zero,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	court, err := database.Queries.CreateCourt(ctx, queries.CreateCourtParams{Name: "Cancha Norte", HourlyCost: decimal.NewFromInt(16000), MaxPlayers: 4})
	if err != nil {
		t.Fatalf("CreateCourt: %v", err)
	}

	params := queries.CreateReservationParams{
		UserID:    "12345678-5",
		CourtID:   court.ID,
		Date:      "2025-01-06",
		StartTime: "11:30",
		EndTime:   "10:00",
		State:     models.StatePending,
	}
	if _, err := database.Queries.CreateReservation(ctx, params); !IsConstraintViolation(err) {
		t.Fatalf("inverted window should violate CHECK, got %v", err)
	}

	params.StartTime, params.EndTime = "10:00", "11:30"
	res, err := database.Queries.CreateReservation(ctx, params)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if err := database.Queries.CreatePlayers(ctx, res.ID, []queries.CreatePlayerParams{
		{Name: "Ana", Surname: "Rojas", NationalID: "12345678-5", Age: 30},
		{Name: "Luis", Surname: "Soto", NationalID: "22222222-2", Age: 16},
	}); err != nil {
		t.Fatalf("CreatePlayers: %v", err)
	}

	if _, err := database.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, res.ID); err != nil {
		t.Fatalf("delete reservation: %v", err)
	}
	players, err := database.Queries.ListPlayers(ctx, res.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("players survived their reservation: %+v", players)
	}
}
