package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// MemoryShowRepository is a catalog kept in process memory. It backs the
// memory store and tests.
type MemoryShowRepository struct {
	mu     sync.RWMutex
	shows  map[int]domain.Show
	nextID int
}

func NewMemoryShowRepository() *MemoryShowRepository {
	return &MemoryShowRepository{
		shows: make(map[int]domain.Show),
	}
}

func (m *MemoryShowRepository) GetByID(_ context.Context, id int) (*domain.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	show, ok := m.shows[id]
	if !ok {
		return nil, domain.ErrShowNotFound
	}

	return &show, nil
}

// Create assigns the next id when show.ID is zero.
func (m *MemoryShowRepository) Create(_ context.Context, show *domain.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if show.ID == 0 {
		m.nextID++
		show.ID = m.nextID
	} else if show.ID > m.nextID {
		m.nextID = show.ID
	}

	m.shows[show.ID] = *show

	return nil
}

type MemoryHoldRepository struct {
	mu    sync.RWMutex
	holds map[uuid.UUID]domain.Hold
}

func NewMemoryHoldRepository() *MemoryHoldRepository {
	return &MemoryHoldRepository{
		holds: make(map[uuid.UUID]domain.Hold),
	}
}

func (m *MemoryHoldRepository) Create(_ context.Context, hold *domain.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.holds[hold.ID]; exists {
		return domain.ErrEditConflict
	}

	stored := *hold
	stored.Seats = append([]int(nil), hold.Seats...)
	m.holds[hold.ID] = stored

	return nil
}

func (m *MemoryHoldRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok || hold.State != domain.HoldActive {
		return domain.ErrRecordNotFound
	}

	delete(m.holds, id)

	return nil
}

func (m *MemoryHoldRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hold, ok := m.holds[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &hold, nil
}

func (m *MemoryHoldRepository) UpdateState(_ context.Context, id uuid.UUID, from, to domain.HoldState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok || hold.State != from {
		return domain.ErrEditConflict
	}

	hold.State = to
	m.holds[id] = hold

	return nil
}

func (m *MemoryHoldRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	holds := make([]domain.Hold, 0)
	for _, hold := range m.holds {
		if hold.State == domain.HoldActive && hold.ExpiredAt(now) {
			holds = append(holds, hold)
		}
	}

	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })

	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}

	return holds, nil
}

type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	byHold   map[uuid.UUID]uuid.UUID
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[uuid.UUID]domain.Booking),
		byHold:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *MemoryBookingRepository) Create(_ context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bookings[booking.ID]; exists {
		return domain.ErrEditConflict
	}

	if _, exists := m.byHold[booking.HoldID]; exists {
		return domain.ErrEditConflict
	}

	stored := *booking
	stored.Seats = append([]int(nil), booking.Seats...)
	m.bookings[booking.ID] = stored
	m.byHold[booking.HoldID] = booking.ID

	return nil
}

func (m *MemoryBookingRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &booking, nil
}

func (m *MemoryBookingRepository) Cancel(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return false, domain.ErrRecordNotFound
	}

	if booking.Status == domain.BookingCancelled {
		return false, nil
	}

	booking.Status = domain.BookingCancelled
	booking.CancelledAt = &at
	m.bookings[id] = booking

	return true, nil
}

func (m *MemoryBookingRepository) GetByUser(
	_ context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	bookings := m.filter(func(b domain.Booking) bool { return b.UserID == userID })

	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.After(bookings[j].CreatedAt) })

	total := len(bookings)
	start := min(max(pagination.Offset(), 0), total)
	end := min(start+max(pagination.Limit(), 0), total)

	return bookings[start:end], domain.NewMetadata(total, pagination.Page, pagination.PageSize), nil
}

func (m *MemoryBookingRepository) GetByShow(_ context.Context, showID int) ([]domain.Booking, error) {
	bookings := m.filter(func(b domain.Booking) bool { return b.ShowID == showID })

	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.Before(bookings[j].CreatedAt) })

	return bookings, nil
}

func (m *MemoryBookingRepository) filter(keep func(domain.Booking) bool) []domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bookings := make([]domain.Booking, 0)
	for _, b := range m.bookings {
		if keep(b) {
			bookings = append(bookings, b)
		}
	}

	return bookings
}
