package booking

import (
	"context"
	"fmt"

	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

const defaultListLimit = 100

// ReservationDetail is a reservation with its players and rented equipment.
type ReservationDetail struct {
	queries.Reservation
	Players   []queries.Player                  `json:"players"`
	Equipment []queries.ReservationEquipmentRow `json:"equipment"`
}

// GetReservation reads one reservation. Members only see their own.
func (s *Service) GetReservation(ctx context.Context, actor Actor, reservationID int64) (ReservationDetail, error) {
	q := s.db.Queries
	reservation, err := loadReservation(ctx, q, reservationID)
	if err != nil {
		return ReservationDetail{}, err
	}
	if !actor.IsAdmin() && reservation.UserID != FormatRUT(actor.ID) {
		return ReservationDetail{}, newError(KindNotFound, "reservation %d not found", reservationID)
	}
	players, err := q.ListPlayers(ctx, reservation.ID)
	if err != nil {
		return ReservationDetail{}, internalError("failed to load players", fmt.Errorf("list players: %w", err))
	}
	equipment, err := q.ListReservationEquipment(ctx, reservation.ID)
	if err != nil {
		return ReservationDetail{}, internalError("failed to load equipment", fmt.Errorf("list equipment: %w", err))
	}
	if players == nil {
		players = []queries.Player{}
	}
	if equipment == nil {
		equipment = []queries.ReservationEquipmentRow{}
	}
	return ReservationDetail{Reservation: reservation, Players: players, Equipment: equipment}, nil
}

// ListReservations returns the actor's reservations, newest slot first,
// optionally limited to the given states.
func (s *Service) ListReservations(ctx context.Context, actor Actor, states ...models.ReservationState) ([]queries.Reservation, error) {
	rows, err := s.db.Queries.ListReservationsForUser(ctx, FormatRUT(actor.ID), states, defaultListLimit)
	if err != nil {
		return nil, internalError("failed to list reservations", fmt.Errorf("list reservations: %w", err))
	}
	if rows == nil {
		rows = []queries.Reservation{}
	}
	return rows, nil
}
