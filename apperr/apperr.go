package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Hint points the caller at the route that resolves their situation,
// e.g. "you already have this product in the cart, use PUT instead".
type Hint struct {
	Functionality string `json:"functionality,omitempty"`
	Method        string `json:"method,omitempty"`
	URL           string `json:"url,omitempty"`
	LastPage      int64  `json:"last_page,omitempty"`
}

// ShopError is a business-rule violation surfaced to the caller with a
// descriptive message, an HTTP status, and optional machine-readable hints.
type ShopError struct {
	Message string
	Status  int
	Hints   []Hint
}

func (e *ShopError) Error() string { return e.Message }

func New(status int, message string) *ShopError {
	return &ShopError{Message: message, Status: status}
}

func Newf(status int, format string, args ...any) *ShopError {
	return &ShopError{Message: fmt.Sprintf(format, args...), Status: status}
}

func (e *ShopError) WithHint(h Hint) *ShopError {
	e.Hints = append(e.Hints, h)
	return e
}

// ValidationError carries per-field messages for store-level validation
// failures (missing fields, length, range, uniqueness).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields[field] = message
	return e
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// StatusOf classifies an error for the response writer: ShopError keeps its
// own status, validation failures are 400, anything else is internal.
func StatusOf(err error) int {
	var se *ShopError
	if errors.As(err, &se) {
		if se.Status != 0 {
			return se.Status
		}
		return http.StatusBadRequest
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
