package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrDuplicateSubmission    = errors.New("order with this payment key was already submitted")
	ErrCancelAlreadyRequested = errors.New("cancellation already requested")
)

// InvalidTransitionError 非法的状态变更
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
