package entity

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the purchase workflow. Adapters wrap driver errors
// into one of these so callers only ever match on kinds.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrTransactionConflict = errors.New("transaction conflict")
	ErrPersistence         = errors.New("persistence failure")
	ErrNotification        = errors.New("notification failure")
)

var (
	ErrInvalidEmail    = fmt.Errorf("%w: malformed email", ErrInvalidInput)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	ErrInvalidProduct  = fmt.Errorf("%w: missing product id", ErrInvalidInput)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
)

// InsufficientStockError carries the requested vs. available context.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Retryable reports whether the caller may safely resubmit the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict) || errors.Is(err, ErrPersistence)
}
