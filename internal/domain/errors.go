package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrEditConflict    = errors.New("edit conflict")
	ErrShowNotFound    = errors.New("show not found")
	ErrSeatNotFound    = errors.New("seat not found in show layout")
	ErrSeatUnavailable = errors.New("seat(s) are not available")
	ErrHoldNotFound    = errors.New("hold not found")
	ErrHoldExpired     = errors.New("your reservation window has closed, please select your seats again")
	ErrPaymentFailed   = errors.New("payment was not approved")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidLayout   = errors.New("invalid seat layout")
)

// SeatUnavailableError is returned when a hold attempt collides with seats
// that are already held or booked. Seats lists exactly the blocking seats.
type SeatUnavailableError struct {
	Seats []int
}

func (e *SeatUnavailableError) Error() string {
	parts := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		parts[i] = fmt.Sprint(s)
	}

	return fmt.Sprintf("%s: [%s]", ErrSeatUnavailable, strings.Join(parts, ", "))
}

func (e *SeatUnavailableError) Unwrap() error {
	return ErrSeatUnavailable
}

// SeatNotFoundError names the first seat number that falls outside the layout.
type SeatNotFoundError struct {
	Seat int
}

func (e *SeatNotFoundError) Error() string {
	return fmt.Sprintf("%s: %d", ErrSeatNotFound, e.Seat)
}

func (e *SeatNotFoundError) Unwrap() error {
	return ErrSeatNotFound
}
