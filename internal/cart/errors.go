package cart

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("cart not found")

type StatusCode int

const (
	StatusInvalidArgument StatusCode = iota
	StatusFailedPrecondition
	StatusNotFound
)

const (
	ErrMsgItemNotInCart     = "Item not in cart"
	ErrMsgItemIDRequired    = "Item ID is required"
	ErrMsgOutOfStock        = "Item is out of stock"
	ErrMsgUnknownShipping   = "Unknown shipping option"
	ErrMsgUnknownPayment    = "Unknown payment option"
	ErrMsgUnknownStep       = "Quantity step must be plus or minus"
	ErrMsgUnknownCommand    = "Unknown command type"
	ErrMsgInvalidCoupon     = "Invalid coupon code"
	ErrMsgNegativeUnitPrice = "Unit price cannot be negative"
)

func (s StatusCode) String() string {
	switch s {
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// CommandError rejects a command; the cart state is left untouched.
type CommandError struct {
	Code    StatusCode
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

func NewInvalidArgument(message string) *CommandError {
	return &CommandError{Code: StatusInvalidArgument, Message: message}
}

func NewFailedPrecondition(message string) *CommandError {
	return &CommandError{Code: StatusFailedPrecondition, Message: message}
}

func NewNotFoundf(format string, args ...any) *CommandError {
	return &CommandError{Code: StatusNotFound, Message: fmt.Sprintf(format, args...)}
}
