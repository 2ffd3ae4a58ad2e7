// Package inventory holds the authoritative seat grids. Each show has its own
// critical section; no lock is shared between shows.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const pruneInterval = time.Minute

// Memory keeps seat grids in process memory. It is suitable for a single
// instance; use Redis when several instances share the same shows.
type Memory struct {
	shows sync.Map // int -> *grid

	// settled holds are forgotten after this long
	settledHoldTTL time.Duration
	now            func() time.Time
}

type grid struct {
	mu       sync.Mutex
	seats    []domain.SeatStatus
	holds    map[uuid.UUID]*heldSeats
	bookings map[uuid.UUID][]int
	prunedAt time.Time
}

type heldSeats struct {
	seats     []int
	expiry    time.Time
	state     domain.HoldState
	settledAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		settledHoldTTL: defaultSettledHoldTTL,
		now:            time.Now,
	}
}

func (m *Memory) Materialize(_ context.Context, showID int, totalSeats int) error {
	if totalSeats < 1 {
		return fmt.Errorf("%w: show %d has no seats", domain.ErrInvalidLayout, showID)
	}

	if _, ok := m.shows.Load(showID); ok {
		return nil
	}

	seats := make([]domain.SeatStatus, totalSeats)
	for i := range seats {
		seats[i] = domain.Available{}
	}

	m.shows.LoadOrStore(showID, &grid{
		seats:    seats,
		holds:    make(map[uuid.UUID]*heldSeats),
		bookings: make(map[uuid.UUID][]int),
	})

	return nil
}

func (m *Memory) grid(showID int) (*grid, bool) {
	g, ok := m.shows.Load(showID)
	if !ok {
		return nil, false
	}

	return g.(*grid), true
}

func (m *Memory) Statuses(_ context.Context, showID int) (map[int]domain.SeatStatus, error) {
	g, ok := m.grid(showID)
	if !ok {
		return nil, domain.ErrShowNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	statuses := make(map[int]domain.SeatStatus, len(g.seats))
	for i, s := range g.seats {
		statuses[i+1] = s
	}

	return statuses, nil
}

func (m *Memory) TryHold(_ context.Context, showID int, seats []int, holdID uuid.UUID, expiry time.Time) error {
	g, ok := m.grid(showID)
	if !ok {
		return domain.ErrShowNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneSettled(m.now(), m.settledHoldTTL)

	for _, n := range seats {
		if n < 1 || n > len(g.seats) {
			return &domain.SeatNotFoundError{Seat: n}
		}
	}

	if _, exists := g.holds[holdID]; exists {
		return fmt.Errorf("hold %s already exists", holdID)
	}

	var conflicts []int
	for _, n := range seats {
		if g.seats[n-1].State() != domain.SeatAvailable {
			conflicts = append(conflicts, n)
		}
	}

	if len(conflicts) > 0 {
		return &domain.SeatUnavailableError{Seats: conflicts}
	}

	for _, n := range seats {
		g.seats[n-1] = domain.Held{HoldID: holdID, Expiry: expiry}
	}

	g.holds[holdID] = &heldSeats{
		seats:  append([]int(nil), seats...),
		expiry: expiry,
		state:  domain.HoldActive,
	}

	return nil
}

func (m *Memory) Confirm(_ context.Context, showID int, holdID, bookingID uuid.UUID, now time.Time) error {
	g, ok := m.grid(showID)
	if !ok {
		return domain.ErrShowNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.holds[holdID]
	if !ok {
		return fmt.Errorf("%w: hold %s is unknown", domain.ErrHoldExpired, holdID)
	}

	if h.state != domain.HoldActive {
		return fmt.Errorf("%w: hold %s is %s", domain.ErrHoldExpired, holdID, h.state)
	}

	if !now.Before(h.expiry) {
		g.release(holdID, h, domain.HoldExpired, m.now())
		return fmt.Errorf("%w: hold %s expired at %s", domain.ErrHoldExpired, holdID, h.expiry.Format(time.RFC3339))
	}

	for _, n := range h.seats {
		g.seats[n-1] = domain.Booked{BookingID: bookingID}
	}

	g.bookings[bookingID] = h.seats
	h.state = domain.HoldConfirmed
	h.settledAt = m.now()

	return nil
}

func (m *Memory) Release(_ context.Context, showID int, holdID uuid.UUID) (domain.HoldState, error) {
	return m.settle(showID, holdID, domain.HoldCancelled, time.Time{})
}

func (m *Memory) Expire(_ context.Context, showID int, holdID uuid.UUID, now time.Time) (domain.HoldState, error) {
	return m.settle(showID, holdID, domain.HoldExpired, now)
}

func (m *Memory) settle(showID int, holdID uuid.UUID, to domain.HoldState, now time.Time) (domain.HoldState, error) {
	g, ok := m.grid(showID)
	if !ok {
		return "", nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.holds[holdID]
	if !ok {
		return "", nil
	}

	if h.state != domain.HoldActive {
		return h.state, nil
	}

	if to == domain.HoldExpired && now.Before(h.expiry) {
		return domain.HoldActive, nil
	}

	g.release(holdID, h, to, m.now())

	return to, nil
}

// release must be called with g.mu held.
func (g *grid) release(holdID uuid.UUID, h *heldSeats, to domain.HoldState, at time.Time) {
	for _, n := range h.seats {
		if held, ok := g.seats[n-1].(domain.Held); ok && held.HoldID == holdID {
			g.seats[n-1] = domain.Available{}
		}
	}

	h.state = to
	h.settledAt = at
}

// pruneSettled drops holds settled longer than retention ago, at most once
// per pruneInterval. It must be called with g.mu held.
func (g *grid) pruneSettled(now time.Time, retention time.Duration) {
	if now.Sub(g.prunedAt) < pruneInterval {
		return
	}

	g.prunedAt = now

	for id, h := range g.holds {
		if h.state != domain.HoldActive && now.Sub(h.settledAt) >= retention {
			delete(g.holds, id)
		}
	}
}

func (m *Memory) ReleaseBooked(_ context.Context, showID int, bookingID uuid.UUID) error {
	g, ok := m.grid(showID)
	if !ok {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seats, ok := g.bookings[bookingID]
	if !ok {
		return nil
	}

	for _, n := range seats {
		if booked, ok := g.seats[n-1].(domain.Booked); ok && booked.BookingID == bookingID {
			g.seats[n-1] = domain.Available{}
		}
	}

	delete(g.bookings, bookingID)

	return nil
}
