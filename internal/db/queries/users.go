package queries

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/models"
)

const userColumns = `national_id, name, email, password_hash, role, balance, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.NationalID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Balance,
		timestamp{&u.CreatedAt},
	)
	return u, err
}

type CreateUserParams struct {
	NationalID   string
	Name         string
	Email        string
	PasswordHash string
	Role         models.Role
	Balance      decimal.Decimal
}

const createUser = `INSERT INTO users (national_id, name, email, password_hash, role, balance)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.NationalID,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.Role,
		arg.Balance,
	)
	return scanUser(row)
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE national_id = ?`

func (q *Queries) GetUser(ctx context.Context, nationalID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, nationalID))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

type UpdateUserBalanceParams struct {
	NationalID string
	Balance    decimal.Decimal
}

const updateUserBalance = `UPDATE users SET balance = ? WHERE national_id = ?`

func (q *Queries) UpdateUserBalance(ctx context.Context, arg UpdateUserBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserBalance, arg.Balance, arg.NationalID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
