package booking

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
)

// Deposit credits amount to the wallet of nationalID. Members may only top
// up their own wallet.
func (s *Service) Deposit(ctx context.Context, actor Actor, nationalID string, amount decimal.Decimal) (queries.User, error) {
	if nationalID == "" {
		nationalID = actor.ID
	}
	if !ValidRUT(nationalID) {
		return queries.User{}, validationError("national ID %q is not a valid RUT", nationalID)
	}
	nationalID = FormatRUT(nationalID)
	if !actor.IsAdmin() && nationalID != FormatRUT(actor.ID) {
		return queries.User{}, newError(KindForbidden, "members can only deposit into their own wallet")
	}
	if !amount.IsPositive() {
		return queries.User{}, validationError("deposit amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return queries.User{}, validationError("deposit amount has more than two decimal places")
	}

	var user queries.User
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		if _, err := credit(ctx, q, nationalID, amount); err != nil {
			return err
		}
		var err error
		user, err = loadUser(ctx, q, nationalID)
		return err
	})
	if err != nil {
		return queries.User{}, asError(err)
	}

	log.Ctx(ctx).Info().
		Str("actor_id", actor.ID).
		Str("user_id", nationalID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", user.Balance.StringFixed(2)).
		Msg("Wallet deposit")
	return user, nil
}
