// Package api holds the JSON request and response bodies of the HTTP API.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatConflictResponse is returned with 409 when a hold collides with seats
// that are already held or booked.
type SeatConflictResponse struct {
	ErrorResponse
	ConflictSeats []int `json:"conflictSeats"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	ErrorResponse
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type CreateSessionRequest struct {
	UserId int `json:"userId" validate:"gt=0"`
}

type CreateHoldRequest struct {
	ShowId      int   `json:"showId" validate:"gt=0"`
	SeatNumbers []int `json:"seatNumbers" validate:"required"`
	// TtlSeconds falls back to the server default when omitted.
	TtlSeconds *int `json:"ttlSeconds,omitempty" validate:"omitempty,gt=0"`
}

type Hold struct {
	HoldId      uuid.UUID       `json:"holdId"`
	ShowId      int             `json:"showId"`
	SeatNumbers []int           `json:"seatNumbers"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	State       string          `json:"state"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

type HoldResponse struct {
	Hold Hold `json:"hold"`
}

type ConfirmHoldRequest struct {
	HoldId                   uuid.UUID `json:"holdId" validate:"required"`
	PaymentConfirmationToken string    `json:"paymentConfirmationToken" validate:"required,payment_token"`
}

type CancelHoldRequest struct {
	HoldId uuid.UUID `json:"holdId" validate:"required"`
}

type CancelBookingRequest struct {
	BookingId uuid.UUID `json:"bookingId" validate:"required"`
}

type Booking struct {
	BookingId   uuid.UUID       `json:"bookingId"`
	HoldId      uuid.UUID       `json:"holdId"`
	ShowId      int             `json:"showId"`
	SeatNumbers []int           `json:"seatNumbers"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	PaymentRef  string          `json:"paymentRef"`
	CreatedAt   time.Time       `json:"createdAt"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type UserBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
	Metadata Metadata  `json:"metadata"`
}

type ShowBookingsResponse struct {
	ShowId   int       `json:"showId"`
	Bookings []Booking `json:"bookings"`
}

// SeatMapResponse maps every seat number of the layout to Available, Held or
// Booked.
type SeatMapResponse struct {
	ShowId int            `json:"showId"`
	Seats  map[int]string `json:"seats"`
}
