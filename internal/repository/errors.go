// Package repository defines the persistence contract of the booking core
// and the error values shared across layers.  The sentinel values allow
// services and handlers to distinguish failure classes with errors.Is:
// ErrNotFound for missing records, ErrConflict when a seat is already
// booked, ErrInvalidState for illegal booking transitions, ErrValidation
// for malformed input and ErrForbidden for ownership violations.
package repository

import (
    "errors"
    "fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a seat cannot change state because another
// booking already owns it.  Handlers translate it into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a booking is not in a state that
// allows the requested transition, e.g. cancelling a cancelled booking.
var ErrInvalidState = errors.New("invalid state")

// ErrValidation is returned for input that can never succeed, such as an
// empty seat list or more available seats than total seats.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the caller attempts an operation on a
// record they do not own.  Handlers translate it into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// Resource-specific sentinels.  Each wraps its class so both
// errors.Is(err, ErrShowtimeNotFound) and errors.Is(err, ErrNotFound) hold.
var (
    ErrShowtimeNotFound     = fmt.Errorf("showtime %w", ErrNotFound)
    ErrSeatNotFound         = fmt.Errorf("seat %w", ErrNotFound)
    ErrBookingNotFound      = fmt.Errorf("booking %w", ErrNotFound)
    ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
    ErrScreenNotFound       = fmt.Errorf("screen %w", ErrNotFound)
    ErrPaymentOrderNotFound = fmt.Errorf("payment order %w", ErrNotFound)
    ErrSeatAlreadyBooked    = fmt.Errorf("seat already booked: %w", ErrConflict)
)

// SeatError attaches the offending seat id to a seat level failure.  It
// unwraps to the underlying sentinel.
type SeatError struct {
    SeatID uint64
    Err    error
}

func (e *SeatError) Error() string {
    return fmt.Sprintf("seat %d: %v", e.SeatID, e.Err)
}

func (e *SeatError) Unwrap() error { return e.Err }

// NewSeatError is a shorthand for &SeatError{SeatID: id, Err: err}.
func NewSeatError(id uint64, err error) error {
    return &SeatError{SeatID: id, Err: err}
}

// SeatIDOf returns the seat id carried by err, if any.
func SeatIDOf(err error) (uint64, bool) {
    var se *SeatError
    if errors.As(err, &se) {
        return se.SeatID, true
    }
    return 0, false
}
