package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SeatState int

const (
	SeatAvailable SeatState = iota
	SeatHeld
	SeatBooked
)

func (s SeatState) String() string {
	switch s {
	case SeatHeld:
		return "Held"
	case SeatBooked:
		return "Booked"
	default:
		return "Available"
	}
}

// SeatStatus is one of Available, Held or Booked. The set of implementations
// is closed so a seat can never carry both a hold and a booking.
type SeatStatus interface {
	State() SeatState
	isSeatStatus()
}

type Available struct{}

type Held struct {
	HoldID uuid.UUID
	Expiry time.Time
}

type Booked struct {
	BookingID uuid.UUID
}

func (Available) State() SeatState { return SeatAvailable }
func (Held) State() SeatState      { return SeatHeld }
func (Booked) State() SeatState    { return SeatBooked }

func (Available) isSeatStatus() {}
func (Held) isSeatStatus()      {}
func (Booked) isSeatStatus()    {}

// SeatInventory is the authoritative per-show seat grid. Every status
// transition of a show is serialized; different shows never contend.
type SeatInventory interface {
	// Materialize creates the all-Available grid for a show. It is a no-op
	// when the grid already exists.
	Materialize(ctx context.Context, showID int, totalSeats int) error

	Statuses(ctx context.Context, showID int) (map[int]SeatStatus, error)

	// TryHold moves every seat from Available to Held or none of them.
	// It returns *SeatNotFoundError before mutating anything when a seat is
	// outside the grid and *SeatUnavailableError listing the blocking seats
	// on conflict.
	TryHold(ctx context.Context, showID int, seats []int, holdID uuid.UUID, expiry time.Time) error

	// Confirm moves the hold's seats from Held to Booked. It fails with
	// ErrHoldExpired when the hold is no longer active or its expiry is not
	// after now; an active but overdue hold is expired as a side effect.
	Confirm(ctx context.Context, showID int, holdID, bookingID uuid.UUID, now time.Time) error

	// Release cancels an active hold and frees its seats. It returns the
	// hold's final state; releasing a settled or unknown hold is a no-op.
	Release(ctx context.Context, showID int, holdID uuid.UUID) (HoldState, error)

	// Expire is Release for the sweeper: it only acts on holds whose expiry
	// is not after now.
	Expire(ctx context.Context, showID int, holdID uuid.UUID, now time.Time) (HoldState, error)

	// ReleaseBooked frees the seats of a cancelled booking. Idempotent.
	ReleaseBooked(ctx context.Context, showID int, bookingID uuid.UUID) error
}
