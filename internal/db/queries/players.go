package queries

import (
	"context"
	"strings"
)

type CreatePlayerParams struct {
	Name       string
	Surname    string
	NationalID string
	Age        int64
}

// CreatePlayers bulk-inserts the players of one reservation.
func (q *Queries) CreatePlayers(ctx context.Context, reservationID int64, players []CreatePlayerParams) error {
	if len(players) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO players (reservation_id, name, surname, national_id, age) VALUES `)
	args := make([]any, 0, len(players)*5)
	for i, p := range players {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, reservationID, p.Name, p.Surname, p.NationalID, p.Age)
	}
	_, err := q.db.ExecContext(ctx, sb.String(), args...)
	return err
}

const listPlayers = `SELECT id, reservation_id, name, surname, national_id, age
FROM players
WHERE reservation_id = ?
ORDER BY id`

func (q *Queries) ListPlayers(ctx context.Context, reservationID int64) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayers, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Name, &p.Surname, &p.NationalID, &p.Age); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
