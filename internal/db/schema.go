package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Entity is one table the booking store owns.
type Entity struct {
	Table      string
	PrimaryKey []string
}

// Relationship records a foreign key and what happens to the child row when
// its owner is deleted.
type Relationship struct {
	Child      string
	ForeignKey string
	Owner      string
	OwnerKey   string
	OnDelete   string
}

// Schema is the registered shape of the store. It is checked against the
// migrated database at startup so a drifted migration fails fast.
var Schema = struct {
	Entities      []Entity
	Relationships []Relationship
}{
	Entities: []Entity{
		{Table: "users", PrimaryKey: []string{"national_id"}},
		{Table: "courts", PrimaryKey: []string{"id"}},
		{Table: "equipment", PrimaryKey: []string{"id"}},
		{Table: "reservations", PrimaryKey: []string{"id"}},
		{Table: "players", PrimaryKey: []string{"id"}},
		{Table: "reservation_equipment", PrimaryKey: []string{"reservation_id", "equipment_id"}},
	},
	Relationships: []Relationship{
		{Child: "reservations", ForeignKey: "user_id", Owner: "users", OwnerKey: "national_id", OnDelete: "NO ACTION"},
		{Child: "reservations", ForeignKey: "court_id", Owner: "courts", OwnerKey: "id", OnDelete: "NO ACTION"},
		{Child: "players", ForeignKey: "reservation_id", Owner: "reservations", OwnerKey: "id", OnDelete: "CASCADE"},
		{Child: "reservation_equipment", ForeignKey: "reservation_id", Owner: "reservations", OwnerKey: "id", OnDelete: "CASCADE"},
		{Child: "reservation_equipment", ForeignKey: "equipment_id", Owner: "equipment", OwnerKey: "id", OnDelete: "NO ACTION"},
	},
}

// VerifySchema checks that every registered entity exists with its primary
// key and that every registered relationship is declared with the expected
// delete rule.
func VerifySchema(ctx context.Context, conn *sql.DB) error {
	for _, entity := range Schema.Entities {
		pk, err := primaryKeyColumns(ctx, conn, entity.Table)
		if err != nil {
			return err
		}
		if strings.Join(pk, ",") != strings.Join(entity.PrimaryKey, ",") {
			return fmt.Errorf("table %s: primary key %v, want %v", entity.Table, pk, entity.PrimaryKey)
		}
	}

	for _, rel := range Schema.Relationships {
		found, onDelete, err := findForeignKey(ctx, conn, rel)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("missing foreign key %s.%s -> %s.%s", rel.Child, rel.ForeignKey, rel.Owner, rel.OwnerKey)
		}
		if !strings.EqualFold(onDelete, rel.OnDelete) {
			return fmt.Errorf("foreign key %s.%s: on delete %s, want %s", rel.Child, rel.ForeignKey, onDelete, rel.OnDelete)
		}
	}
	return nil
}

func primaryKeyColumns(ctx context.Context, conn *sql.DB, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT name, pk FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		var pos int
		if err := rows.Scan(&name, &pos); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return columns, nil
}

func findForeignKey(ctx context.Context, conn *sql.DB, rel Relationship) (bool, string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT "table", "from", "to", on_delete FROM pragma_foreign_key_list(?)`, rel.Child)
	if err != nil {
		return false, "", fmt.Errorf("foreign keys %s: %w", rel.Child, err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, from, to, onDelete string
		if err := rows.Scan(&owner, &from, &to, &onDelete); err != nil {
			return false, "", err
		}
		if owner == rel.Owner && from == rel.ForeignKey && to == rel.OwnerKey {
			return true, onDelete, nil
		}
	}
	return false, "", rows.Err()
}
