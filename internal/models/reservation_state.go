// internal/models/reservation_state.go
package models

import "fmt"

type ReservationState string

const (
	StatePending          ReservationState = "pending"
	StateConfirmed        ReservationState = "confirmed"
	StateCompleted        ReservationState = "completed"
	StateArchived         ReservationState = "archived"
	StateCancelledByUser  ReservationState = "cancelled_by_user"
	StateCancelledByAdmin ReservationState = "cancelled_by_admin"
	StateNoShow           ReservationState = "no_show"
	StateBlocked          ReservationState = "blocked"
)

// transitions lists every legal edge of the reservation lifecycle.
var transitions = map[ReservationState][]ReservationState{
	StatePending:   {StateConfirmed, StateArchived, StateCancelledByUser, StateCancelledByAdmin},
	StateConfirmed: {StateCompleted, StateCancelledByUser, StateCancelledByAdmin, StateNoShow},
	StateBlocked:   {StateCancelledByAdmin},
}

// FreeingStates are the states that release a slot for availability.
var FreeingStates = []ReservationState{StateCancelledByUser, StateCancelledByAdmin, StateNoShow}

func ParseReservationState(raw string) (ReservationState, error) {
	state := ReservationState(raw)
	switch state {
	case StatePending, StateConfirmed, StateCompleted, StateArchived,
		StateCancelledByUser, StateCancelledByAdmin, StateNoShow, StateBlocked:
		return state, nil
	}
	return "", fmt.Errorf("unknown reservation state %q", raw)
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to ReservationState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns the states that may transition into to.
func SourcesOf(to ReservationState) []ReservationState {
	var sources []ReservationState
	for _, from := range []ReservationState{StatePending, StateConfirmed, StateBlocked} {
		if CanTransition(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

func (s ReservationState) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s ReservationState) IsCancelled() bool {
	return s == StateCancelledByUser || s == StateCancelledByAdmin
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type EquipmentCategory string

const (
	CategoryRacket    EquipmentCategory = "racket"
	CategoryBalls     EquipmentCategory = "balls"
	CategoryCourtGear EquipmentCategory = "court_gear"
	CategoryFootwear  EquipmentCategory = "footwear"
)

func ParseEquipmentCategory(raw string) (EquipmentCategory, error) {
	category := EquipmentCategory(raw)
	switch category {
	case CategoryRacket, CategoryBalls, CategoryCourtGear, CategoryFootwear:
		return category, nil
	}
	return "", fmt.Errorf("unknown equipment category %q", raw)
}
