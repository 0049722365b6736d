package queries

import (
	"context"

	"github.com/shopspring/decimal"
)

const courtColumns = `id, name, hourly_cost, max_players`

func scanCourt(row interface{ Scan(...any) error }) (Court, error) {
	var c Court
	err := row.Scan(&c.ID, &c.Name, &c.HourlyCost, &c.MaxPlayers)
	return c, err
}

type CreateCourtParams struct {
	Name       string
	HourlyCost decimal.Decimal
	MaxPlayers int64
}

const createCourt = `INSERT INTO courts (name, hourly_cost, max_players)
VALUES (?, ?, ?)
RETURNING ` + courtColumns

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	return scanCourt(q.db.QueryRowContext(ctx, createCourt, arg.Name, arg.HourlyCost, arg.MaxPlayers))
}

const getCourt = `SELECT ` + courtColumns + ` FROM courts WHERE id = ?`

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	return scanCourt(q.db.QueryRowContext(ctx, getCourt, id))
}

const listCourts = `SELECT ` + courtColumns + ` FROM courts ORDER BY name`

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
