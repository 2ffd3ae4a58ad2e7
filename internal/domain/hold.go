package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type HoldState string

const (
	HoldActive    HoldState = "Active"
	HoldConfirmed HoldState = "Confirmed"
	HoldExpired   HoldState = "Expired"
	HoldCancelled HoldState = "Cancelled"
)

func (s HoldState) Terminal() bool {
	return s == HoldConfirmed || s == HoldExpired || s == HoldCancelled
}

type Hold struct {
	ID          uuid.UUID
	ShowID      int
	Seats       []int
	UserID      int
	TotalAmount decimal.Decimal
	State       HoldState
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ExpiredAt reports whether the hold's window has closed at the given time.
func (h *Hold) ExpiredAt(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

type HoldRepository interface {
	Create(ctx context.Context, hold *Hold) error
	// Delete removes an active hold that never got its seats.
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	// UpdateState moves a hold from one state to another and returns
	// ErrEditConflict when the stored state is not from.
	UpdateState(ctx context.Context, id uuid.UUID, from, to HoldState) error
	// ListExpired returns up to limit active holds whose expiry is not after now,
	// oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Hold, error)
}
