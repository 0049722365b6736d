package queries

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/models"
)

const equipmentColumns = `id, name, category, stock, unit_cost`

func scanEquipment(row interface{ Scan(...any) error }) (Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Stock, &e.UnitCost)
	return e, err
}

type CreateEquipmentParams struct {
	Name     string
	Category models.EquipmentCategory
	Stock    int64
	UnitCost decimal.Decimal
}

const createEquipment = `INSERT INTO equipment (name, category, stock, unit_cost)
VALUES (?, ?, ?, ?)
RETURNING ` + equipmentColumns

func (q *Queries) CreateEquipment(ctx context.Context, arg CreateEquipmentParams) (Equipment, error) {
	return scanEquipment(q.db.QueryRowContext(ctx, createEquipment, arg.Name, arg.Category, arg.Stock, arg.UnitCost))
}

const getEquipment = `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = ?`

func (q *Queries) GetEquipment(ctx context.Context, id int64) (Equipment, error) {
	return scanEquipment(q.db.QueryRowContext(ctx, getEquipment, id))
}

const listEquipment = `SELECT ` + equipmentColumns + ` FROM equipment ORDER BY category, name`

func (q *Queries) ListEquipment(ctx context.Context) ([]Equipment, error) {
	rows, err := q.db.QueryContext(ctx, listEquipment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type AdjustEquipmentStockParams struct {
	ID       int64
	Quantity int64
}

// The stock >= ? guard makes a decrement report zero rows instead of going
// negative.
const decrementEquipmentStock = `UPDATE equipment SET stock = stock - ? WHERE id = ? AND stock >= ?`

func (q *Queries) DecrementEquipmentStock(ctx context.Context, arg AdjustEquipmentStockParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, decrementEquipmentStock, arg.Quantity, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementEquipmentStock = `UPDATE equipment SET stock = stock + ? WHERE id = ?`

func (q *Queries) IncrementEquipmentStock(ctx context.Context, arg AdjustEquipmentStockParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementEquipmentStock, arg.Quantity, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type AddReservationEquipmentParams struct {
	ReservationID int64
	EquipmentID   int64
	Quantity      int64
}

const addReservationEquipment = `INSERT INTO reservation_equipment (reservation_id, equipment_id, quantity) VALUES (?, ?, ?)`

func (q *Queries) AddReservationEquipment(ctx context.Context, arg AddReservationEquipmentParams) error {
	_, err := q.db.ExecContext(ctx, addReservationEquipment, arg.ReservationID, arg.EquipmentID, arg.Quantity)
	return err
}

const listReservationEquipment = `SELECT re.equipment_id, e.name, re.quantity
FROM reservation_equipment re
JOIN equipment e ON e.id = re.equipment_id
WHERE re.reservation_id = ?
ORDER BY re.equipment_id`

func (q *Queries) ListReservationEquipment(ctx context.Context, reservationID int64) ([]ReservationEquipmentRow, error) {
	rows, err := q.db.QueryContext(ctx, listReservationEquipment, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReservationEquipmentRow
	for rows.Next() {
		var i ReservationEquipmentRow
		if err := rows.Scan(&i.EquipmentID, &i.Name, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
