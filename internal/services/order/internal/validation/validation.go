package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Vivek-k24/foodbiz/internal/models"
	"github.com/Vivek-k24/foodbiz/internal/services/order/internal/domain"
)

const (
	maxLines             = 50
	maxNotesLength       = 200
	maxNoteLength        = 500
	maxIdempotencyKeyLen = 128
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePlaceOrderRequest checks request shape only. Item availability and
// the lower quantity bound are checked against the menu by the placement
// service. Note lengths count characters, not bytes.
func ValidatePlaceOrderRequest(req *domain.PlaceOrderRequest) error {
	if err := validateLines(req.Lines); err != nil {
		return err
	}

	if req.Note != nil && utf8.RuneCountInString(*req.Note) > maxNoteLength {
		return ValidationError{
			Field:   "note",
			Message: fmt.Sprintf("note must be at most %d characters", maxNoteLength),
		}
	}
	return nil
}

// ValidateIdempotencyKey accepts an empty key (no idempotency) or a short
// printable token.
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return nil
	}
	if len(key) > maxIdempotencyKeyLen {
		return ValidationError{
			Field:   "Idempotency-Key",
			Message: fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLen),
		}
	}
	if strings.IndexFunc(key, func(r rune) bool { return !unicode.IsPrint(r) || unicode.IsSpace(r) }) >= 0 {
		return ValidationError{
			Field:   "Idempotency-Key",
			Message: "idempotency key must not contain whitespace or control characters",
		}
	}
	return nil
}

func validateLines(lines []domain.PlaceOrderLine) error {
	if len(lines) == 0 {
		return ValidationError{
			Field:   "lines",
			Message: "lines cannot be empty",
		}
	}

	if len(lines) > maxLines {
		return ValidationError{
			Field:   "lines",
			Message: fmt.Sprintf("a maximum of %d lines is allowed", maxLines),
		}
	}

	for i, line := range lines {
		if err := validateLine(line, i); err != nil {
			return err
		}
	}
	return nil
}

func validateLine(line domain.PlaceOrderLine, index int) error {
	if strings.TrimSpace(line.ItemID) == "" {
		return ValidationError{
			Field:   fmt.Sprintf("lines[%d].itemId", index),
			Message: "item id is required",
		}
	}

	if line.Quantity > models.MaxLineQuantity {
		return ValidationError{
			Field:   fmt.Sprintf("lines[%d].quantity", index),
			Message: fmt.Sprintf("quantity must be at most %d", models.MaxLineQuantity),
		}
	}

	if line.Notes != nil && utf8.RuneCountInString(*line.Notes) > maxNotesLength {
		return ValidationError{
			Field:   fmt.Sprintf("lines[%d].notes", index),
			Message: fmt.Sprintf("notes must be at most %d characters", maxNotesLength),
		}
	}
	return nil
}
