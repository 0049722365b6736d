package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

// PathID parses the {name} path wildcard as a positive ID.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

// ParseMoney parses a non-negative amount with at most two decimals.
func ParseMoney(raw string, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, FieldError{Field: field, Reason: "is required"}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, FieldError{Field: field, Reason: "must be a decimal amount"}
	}
	if amount.IsNegative() {
		return decimal.Zero, FieldError{Field: field, Reason: "must be 0 or greater"}
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, FieldError{Field: field, Reason: fmt.Sprintf("must have at most %d decimal places", 2)}
	}
	return amount, nil
}
