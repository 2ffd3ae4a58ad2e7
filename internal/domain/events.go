package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSeatsHeld        EventType = "seats.held"
	EventSeatsReleased    EventType = "seats.released"
	EventHoldExpired      EventType = "hold.expired"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
)

type Event struct {
	Type       EventType  `json:"type"`
	ShowID     int        `json:"showId"`
	Seats      []int      `json:"seats"`
	HoldID     *uuid.UUID `json:"holdId,omitempty"`
	BookingID  *uuid.UUID `json:"bookingId,omitempty"`
	UserID     int        `json:"userId"`
	OccurredAt time.Time  `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
