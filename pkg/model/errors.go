package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrDuplicateOrder  = errors.New("order already exists")
)

// InvariantViolation is the panic value raised when the book reaches a state
// that correct matching can never produce. It is not meant to be recovered.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Rule, e.Detail)
}

func Violation(rule, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
