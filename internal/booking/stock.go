package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db/queries"
)

// equipmentLine is one item of a booking after duplicates were merged.
type equipmentLine struct {
	item     queries.Equipment
	quantity int64
}

// priceEquipment groups requests by item, checks stock and returns the
// lines in item order together with their total cost.
func priceEquipment(ctx context.Context, q *queries.Queries, requests []EquipmentInput) ([]equipmentLine, decimal.Decimal, error) {
	quantities := make(map[int64]int64)
	for _, r := range requests {
		quantities[r.ItemID] += r.Quantity
	}
	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := decimal.Zero
	lines := make([]equipmentLine, 0, len(ids))
	for _, id := range ids {
		item, err := q.GetEquipment(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, decimal.Zero, newError(KindNotFound, "equipment item %d not found", id)
			}
			return nil, decimal.Zero, internalError("failed to load equipment", fmt.Errorf("get equipment %d: %w", id, err))
		}
		qty := quantities[id]
		if item.Stock < qty {
			return nil, decimal.Zero, newError(KindInsufficientStock, "not enough %s in stock: requested %d, available %d", item.Name, qty, item.Stock)
		}
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(qty)))
		lines = append(lines, equipmentLine{item: item, quantity: qty})
	}
	return lines, total, nil
}

// reserveEquipment records the join rows and takes the stock. The
// conditional decrement fails the whole booking rather than going negative.
func reserveEquipment(ctx context.Context, q *queries.Queries, reservationID int64, lines []equipmentLine) error {
	for _, line := range lines {
		if err := q.AddReservationEquipment(ctx, queries.AddReservationEquipmentParams{
			ReservationID: reservationID,
			EquipmentID:   line.item.ID,
			Quantity:      line.quantity,
		}); err != nil {
			return storeError("failed to store equipment", fmt.Errorf("add reservation equipment: %w", err))
		}
		n, err := q.DecrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: line.item.ID, Quantity: line.quantity})
		if err != nil {
			return internalError("failed to update stock", fmt.Errorf("decrement stock for %d: %w", line.item.ID, err))
		}
		if n == 0 {
			return newError(KindInsufficientStock, "not enough %s in stock", line.item.Name)
		}
	}
	return nil
}

// ReturnStock puts back every item recorded for the reservation. Callers run
// it inside the same transaction that moved the reservation out of an
// active state, and only when that state change succeeded.
func ReturnStock(ctx context.Context, q *queries.Queries, reservationID int64) (int64, error) {
	rows, err := q.ListReservationEquipment(ctx, reservationID)
	if err != nil {
		return 0, fmt.Errorf("list equipment for reservation %d: %w", reservationID, err)
	}
	var returned int64
	for _, row := range rows {
		if _, err := q.IncrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: row.EquipmentID, Quantity: row.Quantity}); err != nil {
			return returned, fmt.Errorf("return %d of equipment %d: %w", row.Quantity, row.EquipmentID, err)
		}
		returned += row.Quantity
	}
	return returned, nil
}
