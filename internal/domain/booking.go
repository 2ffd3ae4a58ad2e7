package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCancelled BookingStatus = "Cancelled"
)

type Booking struct {
	ID          uuid.UUID
	HoldID      uuid.UUID
	ShowID      int
	UserID      int
	Seats       []int
	TotalAmount decimal.Decimal
	Status      BookingStatus
	PaymentRef  string
	CreatedAt   time.Time
	CancelledAt *time.Time
}

var bookingNamespace = uuid.MustParse("6f1c7d2e-4b8a-4f0e-9c3d-2a5b8e7f1d40")

// BookingIDFor derives the id of the booking a hold turns into. The seats a
// hold booked can then be located from the hold alone, even when the booking
// was never written.
func BookingIDFor(holdID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(bookingNamespace, holdID[:])
}

// BookingRepository is the Booking Ledger. Records are never deleted;
// cancellation only flips the status.
type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Cancel flips a confirmed booking to cancelled and reports whether the
	// status changed. Cancelling a cancelled booking is a no-op.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	GetByUser(ctx context.Context, userID int, pagination Pagination) ([]Booking, *Metadata, error)
	GetByShow(ctx context.Context, showID int) ([]Booking, error)
}
