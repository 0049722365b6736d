package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/clock"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
)

const notificationTimeout = 30 * time.Second

// Service is the booking engine: availability, booking, cancellation and
// the admin operations that share their invariants.
type Service struct {
	db       *db.DB
	clock    *clock.Clock
	policy   Policy
	notifier notify.Notifier

	pending sync.WaitGroup
}

func NewService(database *db.DB, clk *clock.Clock, policy Policy, notifier notify.Notifier) (*Service, error) {
	if database == nil {
		return nil, fmt.Errorf("booking service requires database")
	}
	if clk == nil {
		return nil, fmt.Errorf("booking service requires clock")
	}
	if policy.ClosesAt <= policy.OpensAt {
		return nil, fmt.Errorf("booking policy closes at %s before opening at %s", policy.ClosesAt, policy.OpensAt)
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{db: database, clock: clk, policy: policy, notifier: notifier}, nil
}

// Wait blocks until in-flight post-commit notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Book validates req and, in one write transaction, checks the slot,
// charges the requester, reserves equipment and stores the reservation in
// the pending state.
func (s *Service) Book(ctx context.Context, req Request) (queries.Reservation, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking").
		Str("requester_id", req.RequesterID).
		Int64("court_id", req.CourtID).
		Logger()

	slot, err := ValidateRequest(req, s.policy, s.clock)
	if err != nil {
		return queries.Reservation{}, err
	}
	requesterID := FormatRUT(req.RequesterID)

	var (
		created   queries.Reservation
		court     queries.Court
		requester queries.User
	)
	err = s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		court, err = loadCourt(ctx, q, slot.CourtID)
		if err != nil {
			return err
		}
		requester, err = loadUser(ctx, q, requesterID)
		if err != nil {
			return err
		}
		if int64(len(req.Players)) > court.MaxPlayers {
			return newError(KindCapacityExceeded, "court %s admits at most %d players, got %d", court.Name, court.MaxPlayers, len(req.Players))
		}

		courtDay, err := s.activeReservations(ctx, q, queries.ReservationFilter{Date: slot.DateString(), CourtID: court.ID})
		if err != nil {
			return err
		}
		// Blocks are court maintenance, not the admin's own play.
		ownDay, err := s.activeReservations(ctx, q, queries.ReservationFilter{
			Date:          slot.DateString(),
			UserID:        requester.NationalID,
			ExcludeStates: []models.ReservationState{models.StateBlocked},
		})
		if err != nil {
			return err
		}
		if err := checkCourtConflict(courtDay, slot.Window); err != nil {
			return err
		}
		if err := checkOwnConflict(ownDay, slot.Window); err != nil {
			return err
		}
		if err := checkDailyCap(ownDay, slot.Window, s.policy.DailyCapMinutes); err != nil {
			return err
		}
		if err := checkNoGap(ownDay, courtDay, slot.Window); err != nil {
			return err
		}

		lines, equipmentCost, err := priceEquipment(ctx, q, req.Equipment)
		if err != nil {
			return err
		}
		courtCost := CourtCost(court.HourlyCost, slot.Window)
		total := courtCost.Add(equipmentCost)
		if requester.Balance.LessThan(total) {
			return newError(KindInsufficientFunds, "balance %s does not cover total cost %s", requester.Balance.StringFixed(2), total.StringFixed(2))
		}

		if err := debit(ctx, q, requester, total); err != nil {
			return err
		}

		created, err = q.CreateReservation(ctx, queries.CreateReservationParams{
			UserID:             requester.NationalID,
			CourtID:            court.ID,
			Date:               slot.DateString(),
			StartTime:          slot.Window.Start.String(),
			EndTime:            slot.Window.End.String(),
			EquipmentRequested: len(lines) > 0,
			EquipmentCost:      equipmentCost,
			TotalCost:          total,
			State:              models.StatePending,
		})
		if err != nil {
			return storeError("failed to store reservation", fmt.Errorf("create reservation: %w", err))
		}

		players := make([]queries.CreatePlayerParams, len(req.Players))
		for i, p := range req.Players {
			players[i] = queries.CreatePlayerParams{
				Name:       p.Name,
				Surname:    p.Surname,
				NationalID: FormatRUT(p.NationalID),
				Age:        int64(p.Age),
			}
		}
		if err := q.CreatePlayers(ctx, created.ID, players); err != nil {
			return storeError("failed to store players", fmt.Errorf("create players: %w", err))
		}

		return reserveEquipment(ctx, q, created.ID, lines)
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			logger.Error().Err(err).Msg("Booking failed")
		} else {
			logger.Debug().Err(err).Msg("Booking rejected")
		}
		return queries.Reservation{}, asError(err)
	}

	logger.Info().
		Int64("reservation_id", created.ID).
		Str("date", created.Date).
		Str("start_time", created.StartTime).
		Str("end_time", created.EndTime).
		Str("total_cost", created.TotalCost.StringFixed(2)).
		Msg("Reservation created")

	s.notifyAsync(ctx, "booking_confirmation", created.ID, func(nctx context.Context) error {
		return s.notifier.SendBookingConfirmation(nctx, requester, created, court)
	})
	return created, nil
}

// CourtCost charges hourlyCost pro rata for the window length.
func CourtCost(hourlyCost decimal.Decimal, w Window) decimal.Decimal {
	return hourlyCost.Mul(decimal.NewFromInt(int64(w.Minutes()))).Div(decimal.NewFromInt(60))
}

// activeReservations returns the reservations matching filter that still
// occupy their slot. States already in filter.ExcludeStates stay excluded.
func (s *Service) activeReservations(ctx context.Context, q *queries.Queries, filter queries.ReservationFilter) ([]booked, error) {
	filter.ExcludeStates = append(slices.Clone(filter.ExcludeStates), models.FreeingStates...)
	rows, err := q.FindReservations(ctx, filter)
	if err != nil {
		return nil, internalError("failed to load reservations", fmt.Errorf("find reservations: %w", err))
	}
	return toBooked(rows)
}

func (s *Service) notifyAsync(ctx context.Context, kind string, reservationID int64, send func(context.Context) error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_notifications").
		Str("notification", kind).
		Int64("reservation_id", reservationID).
		Logger()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
		defer cancel()
		if err := send(logger.WithContext(nctx)); err != nil {
			logger.Error().Err(err).Msg("Failed to send notification")
		}
	}()
}

func loadCourt(ctx context.Context, q *queries.Queries, id int64) (queries.Court, error) {
	court, err := q.GetCourt(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return queries.Court{}, newError(KindNotFound, "court %d not found", id)
		}
		return queries.Court{}, internalError("failed to load court", fmt.Errorf("get court %d: %w", id, err))
	}
	return court, nil
}

func loadUser(ctx context.Context, q *queries.Queries, nationalID string) (queries.User, error) {
	user, err := q.GetUser(ctx, nationalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return queries.User{}, newError(KindNotFound, "user %s not found", nationalID)
		}
		return queries.User{}, internalError("failed to load user", fmt.Errorf("get user %s: %w", nationalID, err))
	}
	return user, nil
}

func loadReservation(ctx context.Context, q *queries.Queries, id int64) (queries.Reservation, error) {
	reservation, err := q.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return queries.Reservation{}, newError(KindNotFound, "reservation %d not found", id)
		}
		return queries.Reservation{}, internalError("failed to load reservation", fmt.Errorf("get reservation %d: %w", id, err))
	}
	return reservation, nil
}

func debit(ctx context.Context, q *queries.Queries, user queries.User, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	balance := user.Balance.Sub(amount)
	if balance.IsNegative() {
		return newError(KindInsufficientFunds, "balance %s does not cover %s", user.Balance.StringFixed(2), amount.StringFixed(2))
	}
	return setBalance(ctx, q, user.NationalID, balance)
}

func credit(ctx context.Context, q *queries.Queries, nationalID string, amount decimal.Decimal) (decimal.Decimal, error) {
	user, err := loadUser(ctx, q, nationalID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := user.Balance.Add(amount)
	if err := setBalance(ctx, q, nationalID, balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func setBalance(ctx context.Context, q *queries.Queries, nationalID string, balance decimal.Decimal) error {
	n, err := q.UpdateUserBalance(ctx, queries.UpdateUserBalanceParams{NationalID: nationalID, Balance: balance})
	if err != nil {
		return internalError("failed to update balance", fmt.Errorf("update balance for %s: %w", nationalID, err))
	}
	if n != 1 {
		return newError(KindInvariantViolation, "balance update for %s touched %d rows", nationalID, n)
	}
	return nil
}

// asError makes every error leaving the service a *Error.
func asError(err error) error {
	var berr *Error
	if errors.As(err, &berr) {
		return berr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return internalError("request cancelled", err)
	}
	return internalError("booking failed", err)
}
