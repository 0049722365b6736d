package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/testutil"
)

type fixture struct {
	sweeper  *Sweeper
	db       *db.DB
	notifier *testutil.RecordingNotifier
	court    queries.Court
	balls    queries.Equipment
}

// newFixture freezes the clock at Friday 2024-12-20 10:00 local.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	clk, _ := testutil.NewClock(t)
	notifier := &testutil.RecordingNotifier{}

	sweeper, err := NewSweeper(database, clk, notifier)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	testutil.CreateUser(t, database, testutil.MemberID, models.RoleMember, "50000")

	return &fixture{
		sweeper:  sweeper,
		db:       database,
		notifier: notifier,
		court:    testutil.CreateCourt(t, database, "Cancha Central", "20000"),
		balls:    testutil.CreateEquipment(t, database, "Ball tube", models.CategoryBalls, 5, "1500"),
	}
}

// reserve inserts a reservation and, when quantity > 0, takes that many ball
// tubes from stock the way a booking would.
func (f *fixture) reserve(t *testing.T, date, start, end string, state models.ReservationState, quantity int64) queries.Reservation {
	t.Helper()
	res := testutil.CreateReservation(t, f.db, queries.CreateReservationParams{
		UserID:             testutil.MemberID,
		CourtID:            f.court.ID,
		Date:               date,
		StartTime:          start,
		EndTime:            end,
		EquipmentRequested: quantity > 0,
		TotalCost:          decimal.NewFromInt(30000),
		State:              state,
	})
	if quantity > 0 {
		ctx := context.Background()
		if err := f.db.Queries.AddReservationEquipment(ctx, queries.AddReservationEquipmentParams{
			ReservationID: res.ID,
			EquipmentID:   f.balls.ID,
			Quantity:      quantity,
		}); err != nil {
			t.Fatalf("add equipment: %v", err)
		}
		if n, err := f.db.Queries.DecrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: f.balls.ID, Quantity: quantity}); err != nil || n != 1 {
			t.Fatalf("decrement stock: n=%d err=%v", n, err)
		}
	}
	return res
}

func (f *fixture) state(t *testing.T, id int64) models.ReservationState {
	t.Helper()
	r, err := f.db.Queries.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("get reservation %d: %v", id, err)
	}
	return r.State
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ended := f.reserve(t, "2024-12-20", "08:00", "09:30", models.StateConfirmed, 2)
	endsNow := f.reserve(t, "2024-12-20", "08:30", "10:00", models.StateConfirmed, 0)
	running := f.reserve(t, "2024-12-20", "09:30", "11:00", models.StateConfirmed, 0)
	yesterday := f.reserve(t, "2024-12-19", "18:00", "19:30", models.StateConfirmed, 1)
	pending := f.reserve(t, "2024-12-19", "10:00", "11:30", models.StatePending, 0)

	res, err := f.sweeper.CompleteFinished(ctx)
	if err != nil {
		t.Fatalf("CompleteFinished: %v", err)
	}
	if res.Processed != 3 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 3 processed", res)
	}

	for _, r := range []queries.Reservation{ended, endsNow, yesterday} {
		if got := f.state(t, r.ID); got != models.StateCompleted {
			t.Fatalf("reservation %d state = %s, want completed", r.ID, got)
		}
	}
	if got := f.state(t, running.ID); got != models.StateConfirmed {
		t.Fatalf("running reservation state = %s", got)
	}
	if got := f.state(t, pending.ID); got != models.StatePending {
		t.Fatalf("pending reservation state = %s", got)
	}
	if got := testutil.Stock(t, f.db, f.balls.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}

	// A second run finds nothing to do and returns no stock twice.
	res, err = f.sweeper.CompleteFinished(ctx)
	if err != nil {
		t.Fatalf("second CompleteFinished: %v", err)
	}
	if res.Processed != 0 {
		t.Fatalf("second run processed %d", res.Processed)
	}
	if got := testutil.Stock(t, f.db, f.balls.ID); got != 5 {
		t.Fatalf("stock after second run = %d, want 5", got)
	}
}

func TestArchiveUnconfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tomorrow := f.reserve(t, "2024-12-21", "10:00", "11:30", models.StatePending, 3)
	missed := f.reserve(t, "2024-12-18", "10:00", "11:30", models.StatePending, 0)
	later := f.reserve(t, "2024-12-23", "10:00", "11:30", models.StatePending, 0)
	confirmed := f.reserve(t, "2024-12-21", "12:00", "13:30", models.StateConfirmed, 0)

	res, err := f.sweeper.ArchiveUnconfirmed(ctx)
	if err != nil {
		t.Fatalf("ArchiveUnconfirmed: %v", err)
	}
	if res.Processed != 2 {
		t.Fatalf("result = %+v, want 2 processed", res)
	}
	for _, r := range []queries.Reservation{tomorrow, missed} {
		if got := f.state(t, r.ID); got != models.StateArchived {
			t.Fatalf("reservation %d state = %s, want archived", r.ID, got)
		}
	}
	if got := f.state(t, later.ID); got != models.StatePending {
		t.Fatalf("later reservation state = %s", got)
	}
	if got := f.state(t, confirmed.ID); got != models.StateConfirmed {
		t.Fatalf("confirmed reservation state = %s", got)
	}
	if got := testutil.Stock(t, f.db, f.balls.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	if got := testutil.Balance(t, f.db, testutil.MemberID); !got.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("balance = %s, archival must not refund", got)
	}

	res, err = f.sweeper.ArchiveUnconfirmed(ctx)
	if err != nil {
		t.Fatalf("second ArchiveUnconfirmed: %v", err)
	}
	if res.Processed != 0 {
		t.Fatalf("second run processed %d", res.Processed)
	}
}

func TestSendRemindersMarksOnlySuccessfulSends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	threeDays := f.reserve(t, "2024-12-23", "10:00", "11:30", models.StateConfirmed, 0)
	threeDaysFlaky := f.reserve(t, "2024-12-23", "12:00", "13:30", models.StateConfirmed, 0)
	oneDay := f.reserve(t, "2024-12-21", "10:00", "11:30", models.StateConfirmed, 0)
	pending := f.reserve(t, "2024-12-23", "15:00", "16:30", models.StatePending, 0)
	twoDays := f.reserve(t, "2024-12-22", "10:00", "11:30", models.StateConfirmed, 0)

	f.notifier.Fail = func(id int64) error {
		if id == threeDaysFlaky.ID {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	res, err := f.sweeper.SendReminders(ctx)
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 processed and 1 failed", res)
	}

	check := func(id int64, want3d, want1d bool) {
		t.Helper()
		r, err := f.db.Queries.GetReservation(ctx, id)
		if err != nil {
			t.Fatalf("get reservation: %v", err)
		}
		if r.Reminder3dSent != want3d || r.Reminder1dSent != want1d {
			t.Fatalf("reservation %d flags 3d=%v 1d=%v, want %v %v", id, r.Reminder3dSent, r.Reminder1dSent, want3d, want1d)
		}
	}
	check(threeDays.ID, true, false)
	check(threeDaysFlaky.ID, false, false)
	check(oneDay.ID, false, true)
	check(pending.ID, false, false)
	check(twoDays.ID, false, false)

	// Next run retries only the failed send.
	f.notifier.Fail = nil
	before := len(f.notifier.Calls())
	res, err = f.sweeper.SendReminders(ctx)
	if err != nil {
		t.Fatalf("second SendReminders: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("second run result = %+v, want 1 processed", res)
	}
	calls := f.notifier.Calls()[before:]
	if len(calls) != 1 || calls[0].ReservationID != threeDaysFlaky.ID || calls[0].DaysAhead != 3 {
		t.Fatalf("retry calls = %+v", calls)
	}
	check(threeDaysFlaky.ID, true, false)
}

func TestRemindersFollowTheClock(t *testing.T) {
	database := testutil.NewTestDB(t)
	clk, fake := testutil.NewClock(t)
	notifier := &testutil.RecordingNotifier{}
	sweeper, err := NewSweeper(database, clk, notifier)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	testutil.CreateUser(t, database, testutil.MemberID, models.RoleMember, "0")
	court := testutil.CreateCourt(t, database, "Cancha Sur", "18000")
	res := testutil.CreateReservation(t, database, queries.CreateReservationParams{
		UserID:    testutil.MemberID,
		CourtID:   court.ID,
		Date:      "2024-12-26",
		StartTime: "10:00",
		EndTime:   "11:30",
		State:     models.StateConfirmed,
	})

	ctx := context.Background()
	days := []int{}
	for i := 0; i < 6; i++ {
		if _, err := sweeper.SendReminders(ctx); err != nil {
			t.Fatalf("SendReminders: %v", err)
		}
		fake.Advance(24 * time.Hour)
	}
	for _, c := range notifier.Calls() {
		if c.ReservationID != res.ID {
			t.Fatalf("unexpected reminder %+v", c)
		}
		days = append(days, c.DaysAhead)
	}
	if len(days) != 2 || days[0] != 3 || days[1] != 1 {
		t.Fatalf("reminder days = %v, want [3 1]", days)
	}
}
