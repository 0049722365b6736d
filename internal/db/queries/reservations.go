package queries

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/models"
)

const reservationColumns = `id, user_id, court_id, date, start_time, end_time, equipment_requested,
equipment_cost, total_cost, state, reminder_3d_sent, reminder_1d_sent, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.CourtID,
		&r.Date,
		&r.StartTime,
		&r.EndTime,
		&r.EquipmentRequested,
		&r.EquipmentCost,
		&r.TotalCost,
		&r.State,
		&r.Reminder3dSent,
		&r.Reminder1dSent,
		timestamp{&r.CreatedAt},
		timestamp{&r.UpdatedAt},
	)
	return r, err
}

type CreateReservationParams struct {
	UserID             string
	CourtID            int64
	Date               string
	StartTime          string
	EndTime            string
	EquipmentRequested bool
	EquipmentCost      decimal.Decimal
	TotalCost          decimal.Decimal
	State              models.ReservationState
}

const createReservation = `INSERT INTO reservations (
    user_id, court_id, date, start_time, end_time, equipment_requested, equipment_cost, total_cost, state
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + reservationColumns

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, createReservation,
		arg.UserID,
		arg.CourtID,
		arg.Date,
		arg.StartTime,
		arg.EndTime,
		arg.EquipmentRequested,
		arg.EquipmentCost,
		arg.TotalCost,
		arg.State,
	)
	return scanReservation(row)
}

const getReservation = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

func (q *Queries) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	return scanReservation(q.db.QueryRowContext(ctx, getReservation, id))
}

// TimeWindow is a half-open [Start, End) interval of "HH:MM" values.
type TimeWindow struct {
	Start string
	End   string
}

// ReservationFilter is the predicate shared by availability and booking.
// Zero-valued fields do not constrain the result.
type ReservationFilter struct {
	Date          string
	DateTo        string // inclusive upper bound, used when Date is empty
	CourtID       int64
	UserID        string
	States        []models.ReservationState
	ExcludeStates []models.ReservationState
	Overlapping   *TimeWindow
	Reminder3dSet *bool
	Reminder1dSet *bool
}

// overlapPredicate is the SQL twin of booking.Overlaps.
const overlapPredicate = `start_time < ? AND end_time > ?`

func (f ReservationFilter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.Date != "" {
		clauses = append(clauses, "date = ?")
		args = append(args, f.Date)
	} else if f.DateTo != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.DateTo)
	}
	if f.CourtID != 0 {
		clauses = append(clauses, "court_id = ?")
		args = append(args, f.CourtID)
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.States) > 0 {
		clauses = append(clauses, "state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, s)
		}
	}
	if len(f.ExcludeStates) > 0 {
		clauses = append(clauses, "state NOT IN ("+placeholders(len(f.ExcludeStates))+")")
		for _, s := range f.ExcludeStates {
			args = append(args, s)
		}
	}
	if f.Overlapping != nil {
		clauses = append(clauses, overlapPredicate)
		args = append(args, f.Overlapping.End, f.Overlapping.Start)
	}
	if f.Reminder3dSet != nil {
		clauses = append(clauses, "reminder_3d_sent = ?")
		args = append(args, *f.Reminder3dSet)
	}
	if f.Reminder1dSet != nil {
		clauses = append(clauses, "reminder_1d_sent = ?")
		args = append(args, *f.Reminder1dSet)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FindReservations runs filter against whatever DBTX q is bound to, so the
// same predicate reads identically inside and outside a transaction.
func (q *Queries) FindReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	where, args := filter.where()
	query := `SELECT ` + reservationColumns + ` FROM reservations` + where + ` ORDER BY date, start_time, id`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type UpdateReservationStateParams struct {
	ID   int64
	From []models.ReservationState
	To   models.ReservationState
}

// UpdateReservationState flips state only when the row is still in one of
// From; the affected row count tells the caller whether it won.
func (q *Queries) UpdateReservationState(ctx context.Context, arg UpdateReservationStateParams) (int64, error) {
	query := `UPDATE reservations SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	args := []any{arg.To, arg.ID}
	if len(arg.From) > 0 {
		query += ` AND state IN (` + placeholders(len(arg.From)) + `)`
		for _, s := range arg.From {
			args = append(args, s)
		}
	}
	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBlockedReservation = `DELETE FROM reservations WHERE id = ? AND state = 'blocked'`

func (q *Queries) DeleteBlockedReservation(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBlockedReservation, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type MarkRemindersSentParams struct {
	IDs       []int64
	DaysAhead int
}

// MarkRemindersSent sets the 3-day or 1-day reminder flag for IDs.
func (q *Queries) MarkRemindersSent(ctx context.Context, arg MarkRemindersSentParams) (int64, error) {
	if len(arg.IDs) == 0 {
		return 0, nil
	}
	column := "reminder_1d_sent"
	if arg.DaysAhead == 3 {
		column = "reminder_3d_sent"
	}
	query := `UPDATE reservations SET ` + column + ` = 1, updated_at = CURRENT_TIMESTAMP WHERE id IN (` + placeholders(len(arg.IDs)) + `)`
	args := make([]any, len(arg.IDs))
	for i, id := range arg.IDs {
		args[i] = id
	}
	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listReservationsForUser = `SELECT ` + reservationColumns + ` FROM reservations
WHERE user_id = ?`

// ListReservationsForUser returns the user's newest reservations first.
// A non-empty states narrows the result to those states.
func (q *Queries) ListReservationsForUser(ctx context.Context, userID string, states []models.ReservationState, limit int64) ([]Reservation, error) {
	query := listReservationsForUser
	args := []any{userID}
	if len(states) > 0 {
		query += ` AND state IN (` + placeholders(len(states)) + `)`
		for _, s := range states {
			args = append(args, s)
		}
	}
	query += ` ORDER BY date DESC, start_time DESC LIMIT ?`
	args = append(args, limit)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
