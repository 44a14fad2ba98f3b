package models

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes by how a caller should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidTransition
	KindConflict
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a categorized failure reported to callers. Two Errors match under
// errors.Is when their codes are equal, so the exported sentinels below can be
// used to test for a category of failure regardless of message.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New copies the sentinel with a formatted message.
func (e *Error) New(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails copies the error attaching structured details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details}
}

var (
	ErrOrderNotFound      = &Error{Kind: KindNotFound, Code: "ORDER_NOT_FOUND"}
	ErrTableNotFound      = &Error{Kind: KindNotFound, Code: "TABLE_NOT_FOUND"}
	ErrMenuNotFound       = &Error{Kind: KindNotFound, Code: "MENU_NOT_FOUND"}
	ErrRestaurantNotFound = &Error{Kind: KindNotFound, Code: "RESTAURANT_NOT_FOUND"}

	ErrInvalidOrderTransition = &Error{Kind: KindInvalidTransition, Code: "INVALID_ORDER_TRANSITION"}
	ErrTableAlreadyClosed     = &Error{Kind: KindInvalidTransition, Code: "TABLE_ALREADY_CLOSED"}
	ErrTableNotOpen           = &Error{Kind: KindInvalidTransition, Code: "TABLE_NOT_OPEN"}
	ErrTableCloseBlocked      = &Error{Kind: KindInvalidTransition, Code: "TABLE_CLOSE_BLOCKED"}

	ErrOrderConflict       = &Error{Kind: KindConflict, Code: "CONFLICT"}
	ErrIdempotencyMismatch = &Error{Kind: KindConflict, Code: "IDEMPOTENCY_KEY_REPLAY_DIFFERENT_PAYLOAD"}

	ErrMenuItemUnavailable = &Error{Kind: KindInvalidInput, Code: "MENU_ITEM_UNAVAILABLE"}
	ErrValidation          = &Error{Kind: KindInvalidInput, Code: "VALIDATION_ERROR"}

	ErrInvalidKitchenQueueStatus  = &Error{Kind: KindInvalidInput, Code: "INVALID_KITCHEN_QUEUE_STATUS"}
	ErrInvalidKitchenQueueCursor  = &Error{Kind: KindInvalidInput, Code: "INVALID_KITCHEN_QUEUE_CURSOR"}
	ErrInvalidTableOrdersStatus   = &Error{Kind: KindInvalidInput, Code: "INVALID_TABLE_ORDERS_STATUS"}
	ErrInvalidTableOrdersCursor   = &Error{Kind: KindInvalidInput, Code: "INVALID_TABLE_ORDERS_CURSOR"}
	ErrInvalidTableRegistryStatus = &Error{Kind: KindInvalidInput, Code: "INVALID_TABLE_REGISTRY_STATUS"}
	ErrInvalidTableRegistryCursor = &Error{Kind: KindInvalidInput, Code: "INVALID_TABLE_REGISTRY_CURSOR"}
)

// Store level failures. Coordinators translate these into *Error values.
var (
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrReplayMismatch      = errors.New("idempotency key reused with a different payload")
	ErrInvalidCursor       = errors.New("invalid cursor")
)

// KindOf reports the kind of err, KindInternal when it is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
