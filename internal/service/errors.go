package service

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by OrderService matches exactly one of
// these with errors.Is, except unexpected programming errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage unavailable")
)

// classError carries its own message and unwraps to its class.
type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func validationError(msg string) error { return &classError{msg: msg, class: ErrValidation} }
func notFoundError(msg string) error   { return &classError{msg: msg, class: ErrNotFound} }

// Errors returned by the order service.
var (
	ErrEmptyItems        = validationError("items are required")
	ErrLastItem          = validationError("an order must keep at least one item")
	ErrInvalidQuantity   = validationError("quantity must be >= 1")
	ErrInvalidPrice      = validationError("unit_price must be >= 0")
	ErrInvalidTransition = validationError("invalid status transition")
	ErrStatusChanged     = validationError("order status changed")
	ErrUnknownStatus     = validationError("unknown status")
	ErrInvalidPayment    = validationError("invalid payment_method")
	ErrMissingName       = validationError("customer_name is required")
	ErrMissingPhone      = validationError("customer_phone is required")
	ErrMissingAddress    = validationError("address is required for delivery orders")
	ErrProductNotFound   = validationError("product not found")

	ErrOrderNotFound = notFoundError("order not found")
	ErrItemNotFound  = notFoundError("order item not found")
)

// storageError marks a failed store call as retryable.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
