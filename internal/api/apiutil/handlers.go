package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/booking"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusForKind maps a booking error kind to its HTTP status.
func StatusForKind(kind booking.Kind) int {
	switch kind {
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict, booking.KindInsufficientStock:
		return http.StatusConflict
	case booking.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	case booking.KindInsufficientFunds:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// WriteError renders err as an ErrorResponse. Internal failures are logged
// with their cause and reported with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	status := http.StatusInternalServerError
	resp := ErrorResponse{Kind: string(booking.KindInternal), Message: "Internal server error"}

	var (
		berr   *booking.Error
		herr   HandlerError
		ferr   FieldError
		syntax *json.SyntaxError
	)
	switch {
	case errors.As(err, &berr):
		status = StatusForKind(berr.Kind)
		if status != http.StatusInternalServerError {
			resp = ErrorResponse{Kind: string(berr.Kind), Message: berr.Message}
		}
	case errors.As(err, &herr):
		status = herr.Status
		resp = ErrorResponse{Kind: kindForStatus(herr.Status), Message: herr.Message}
	case errors.As(err, &ferr):
		status = http.StatusBadRequest
		resp = ErrorResponse{Kind: string(booking.KindValidation), Message: ferr.Error()}
	case errors.As(err, &syntax):
		status = http.StatusBadRequest
		resp = ErrorResponse{Kind: string(booking.KindValidation), Message: "invalid JSON body"}
	case errors.Is(err, authz.ErrUnauthenticated):
		status = http.StatusUnauthorized
		resp = ErrorResponse{Kind: "unauthenticated", Message: "Authentication required"}
	case errors.Is(err, authz.ErrForbidden):
		status = http.StatusForbidden
		resp = ErrorResponse{Kind: string(booking.KindForbidden), Message: "Forbidden"}
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	if writeErr := WriteJSON(w, status, resp); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(booking.KindValidation)
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return string(booking.KindForbidden)
	case http.StatusNotFound:
		return string(booking.KindNotFound)
	case http.StatusConflict:
		return string(booking.KindConflict)
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= http.StatusInternalServerError {
		return string(booking.KindInternal)
	}
	return "error"
}

// Actor returns the booking actor of the authenticated request.
func Actor(r *http.Request) (booking.Actor, error) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		return booking.Actor{}, err
	}
	return booking.Actor{ID: user.ID, Role: user.Role}, nil
}

// AdminActor is Actor restricted to administrators.
func AdminActor(r *http.Request) (booking.Actor, error) {
	user, err := authz.RequireAdmin(r.Context())
	if err != nil {
		return booking.Actor{}, err
	}
	return booking.Actor{ID: user.ID, Role: user.Role}, nil
}
