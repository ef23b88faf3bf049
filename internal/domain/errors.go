package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a business failure the caller is expected to handle.
type ErrorCode string

const (
	CodeFlightNotFound           ErrorCode = "FLIGHT_NOT_FOUND"
	CodeFlightNotBookable        ErrorCode = "FLIGHT_NOT_BOOKABLE"
	CodeNoSeatsAvailable         ErrorCode = "NO_SEATS_AVAILABLE"
	CodeSeatAlreadyTaken         ErrorCode = "SEAT_ALREADY_TAKEN"
	CodePaymentDeclined          ErrorCode = "PAYMENT_DECLINED"
	CodeBookingNotFound          ErrorCode = "BOOKING_NOT_FOUND"
	CodeAlreadyCancelled         ErrorCode = "ALREADY_CANCELLED"
	CodeCancellationWindowClosed ErrorCode = "CANCELLATION_WINDOW_CLOSED"
	CodeDuplicateReference       ErrorCode = "DUPLICATE_REFERENCE"
	CodeInvalidInput             ErrorCode = "INVALID_INPUT"
)

// Error is a typed business failure. Two errors match under errors.Is when
// their codes match, so sentinels compare equal to enriched copies.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	// an already cancelled booking is also not found among confirmed ones
	return e.Code == CodeAlreadyCancelled && t.Code == CodeBookingNotFound
}

var (
	ErrFlightNotFound           = &Error{Code: CodeFlightNotFound, Message: "flight not found"}
	ErrFlightNotBookable        = &Error{Code: CodeFlightNotBookable, Message: "flight is not available for booking"}
	ErrNoSeatsAvailable         = &Error{Code: CodeNoSeatsAvailable, Message: "no seats available on this flight"}
	ErrSeatAlreadyTaken         = &Error{Code: CodeSeatAlreadyTaken, Message: "seat is already booked"}
	ErrPaymentDeclined          = &Error{Code: CodePaymentDeclined, Message: "payment processing failed"}
	ErrBookingNotFound          = &Error{Code: CodeBookingNotFound, Message: "booking not found"}
	ErrAlreadyCancelled         = &Error{Code: CodeAlreadyCancelled, Message: "booking is already cancelled"}
	ErrCancellationWindowClosed = &Error{Code: CodeCancellationWindowClosed, Message: "cancellation is allowed up to the cutoff before departure"}
	ErrDuplicateReference       = &Error{Code: CodeDuplicateReference, Message: "could not allocate a unique booking reference"}
	ErrInvalidInput             = &Error{Code: CodeInvalidInput, Message: "invalid input"}
)

// Errorf returns a copy of base with a more specific message.
func Errorf(base *Error, format string, args ...any) *Error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// CodeOf extracts the business code, or "" for infrastructure errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBusiness reports whether err is an expected business-rule failure.
func IsBusiness(err error) bool {
	return CodeOf(err) != ""
}
