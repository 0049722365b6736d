package booking

import (
	"errors"
	"fmt"

	"github.com/codr1/Padelicious/internal/db"
)

// Kind classifies a booking failure for the caller.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindCapacityExceeded   Kind = "capacity_exceeded"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindInvariantViolation Kind = "invariant_violation"
	KindInternal           Kind = "internal"
)

// Error is the single error type the engine returns. Message is safe to show
// to the client; Err keeps the diagnostic cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// storeError classifies a failed write. A row the schema's constraints
// rejected means the engine let an invariant slip.
func storeError(message string, err error) *Error {
	if db.IsConstraintViolation(err) {
		return &Error{Kind: KindInvariantViolation, Message: message, Err: err}
	}
	return internalError(message, err)
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a booking Error of kind k.
func IsKind(err error, k Kind) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Kind == k
}
