package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type showCreator interface {
	domain.ShowRepository
	Create(ctx context.Context, show *domain.Show) error
}

func newTestShow(t *testing.T) *domain.Show {
	t.Helper()

	layout, err := domain.NewLayout([]domain.SeatCategory{
		{Name: "Diamond", From: 1, To: 10, Price: decimal.NewFromInt(300)},
		{Name: "Gold", From: 11, To: 30, Price: decimal.NewFromInt(200)},
		{Name: "Silver", From: 31, To: 50, Price: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	start := time.Date(2030, 1, 1, 20, 0, 0, 0, time.UTC)

	return &domain.Show{
		MovieID:   7,
		TheaterID: 3,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Layout:    layout,
	}
}

func newTestHold(showID, userID int, expiresAt time.Time) *domain.Hold {
	return &domain.Hold{
		ID:          uuid.New(),
		ShowID:      showID,
		Seats:       []int{1, 2, 3},
		UserID:      userID,
		TotalAmount: decimal.NewFromInt(900),
		State:       domain.HoldActive,
		CreatedAt:   expiresAt.Add(-5 * time.Minute),
		ExpiresAt:   expiresAt,
	}
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

var timeComparer = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func runShowRepositoryTests(t *testing.T, repo showCreator) {
	ctx := context.Background()

	show := newTestShow(t)
	require.NoError(t, repo.Create(ctx, show))
	require.NotZero(t, show.ID)

	got, err := repo.GetByID(ctx, show.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(show, got, decimalComparer, timeComparer); diff != "" {
		t.Errorf("show mismatch (-want +got):\n%s", diff)
	}

	_, err = repo.GetByID(ctx, show.ID+1000)
	assert.ErrorIs(t, err, domain.ErrShowNotFound)
}

func runHoldRepositoryTests(t *testing.T, shows showCreator, repo domain.HoldRepository) {
	ctx := context.Background()

	show := newTestShow(t)
	require.NoError(t, shows.Create(ctx, show))

	now := time.Now().Truncate(time.Millisecond)

	t.Run("create and get", func(t *testing.T) {
		hold := newTestHold(show.ID, 1, now.Add(5*time.Minute))
		require.NoError(t, repo.Create(ctx, hold))

		got, err := repo.GetByID(ctx, hold.ID)
		require.NoError(t, err)

		if diff := cmp.Diff(hold, got, decimalComparer, timeComparer); diff != "" {
			t.Errorf("hold mismatch (-want +got):\n%s", diff)
		}

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("update state is compare and set", func(t *testing.T) {
		hold := newTestHold(show.ID, 1, now.Add(5*time.Minute))
		require.NoError(t, repo.Create(ctx, hold))

		require.NoError(t, repo.UpdateState(ctx, hold.ID, domain.HoldActive, domain.HoldConfirmed))

		err := repo.UpdateState(ctx, hold.ID, domain.HoldActive, domain.HoldExpired)
		assert.ErrorIs(t, err, domain.ErrEditConflict)

		got, err := repo.GetByID(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldConfirmed, got.State)
	})

	t.Run("list expired returns overdue active holds oldest first", func(t *testing.T) {
		later := now.Add(time.Hour)

		overdue := newTestHold(show.ID, 2, later.Add(-2*time.Minute))
		older := newTestHold(show.ID, 2, later.Add(-3*time.Minute))
		live := newTestHold(show.ID, 2, later.Add(time.Minute))
		settled := newTestHold(show.ID, 2, later.Add(-time.Minute))

		for _, h := range []*domain.Hold{overdue, older, live, settled} {
			require.NoError(t, repo.Create(ctx, h))
		}
		require.NoError(t, repo.UpdateState(ctx, settled.ID, domain.HoldActive, domain.HoldCancelled))

		holds, err := repo.ListExpired(ctx, later, 100)
		require.NoError(t, err)

		ids := make([]uuid.UUID, 0, len(holds))
		for _, h := range holds {
			if h.UserID == 2 {
				ids = append(ids, h.ID)
			}
		}
		assert.Equal(t, []uuid.UUID{older.ID, overdue.ID}, ids)

		holds, err = repo.ListExpired(ctx, later, 1)
		require.NoError(t, err)
		assert.Len(t, holds, 1)
	})

	t.Run("delete removes only active holds", func(t *testing.T) {
		active := newTestHold(show.ID, 3, now.Add(5*time.Minute))
		settled := newTestHold(show.ID, 3, now.Add(5*time.Minute))

		require.NoError(t, repo.Create(ctx, active))
		require.NoError(t, repo.Create(ctx, settled))
		require.NoError(t, repo.UpdateState(ctx, settled.ID, domain.HoldActive, domain.HoldExpired))

		require.NoError(t, repo.Delete(ctx, active.ID))

		_, err := repo.GetByID(ctx, active.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		err = repo.Delete(ctx, active.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		err = repo.Delete(ctx, settled.ID)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		_, err = repo.GetByID(ctx, settled.ID)
		assert.NoError(t, err)
	})
}

func runBookingRepositoryTests(t *testing.T, shows showCreator, holds domain.HoldRepository, repo domain.BookingRepository) {
	ctx := context.Background()

	show := newTestShow(t)
	require.NoError(t, shows.Create(ctx, show))

	otherShow := newTestShow(t)
	require.NoError(t, shows.Create(ctx, otherShow))

	now := time.Now().Truncate(time.Millisecond)
	userID := 40 + show.ID

	newBooking := func(showID int, createdAt time.Time, seats ...int) *domain.Booking {
		hold := newTestHold(showID, userID, createdAt.Add(time.Minute))
		hold.Seats = seats
		require.NoError(t, holds.Create(ctx, hold))

		booking := &domain.Booking{
			ID:          uuid.New(),
			HoldID:      hold.ID,
			ShowID:      showID,
			UserID:      userID,
			Seats:       seats,
			TotalAmount: decimal.NewFromInt(int64(100 * len(seats))),
			Status:      domain.BookingConfirmed,
			PaymentRef:  "pi_test",
			CreatedAt:   createdAt,
		}
		require.NoError(t, repo.Create(ctx, booking))

		return booking
	}

	first := newBooking(show.ID, now.Add(-2*time.Minute), 31, 32)
	second := newBooking(show.ID, now.Add(-time.Minute), 5)
	third := newBooking(otherShow.ID, now, 11)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)

		if diff := cmp.Diff(first, got, decimalComparer, timeComparer); diff != "" {
			t.Errorf("booking mismatch (-want +got):\n%s", diff)
		}

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("one booking per hold", func(t *testing.T) {
		duplicate := *first
		duplicate.ID = uuid.New()

		err := repo.Create(ctx, &duplicate)
		assert.ErrorIs(t, err, domain.ErrEditConflict)
	})

	t.Run("get by user is paginated newest first", func(t *testing.T) {
		bookings, metadata, err := repo.GetByUser(ctx, userID, domain.Pagination{Page: 1, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, third.ID, bookings[0].ID)
		assert.Equal(t, second.ID, bookings[1].ID)
		assert.Equal(t, &domain.Metadata{CurrentPage: 1, FirstPage: 1, LastPage: 2, PageSize: 2, TotalRecords: 3}, metadata)

		bookings, _, err = repo.GetByUser(ctx, userID, domain.Pagination{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, first.ID, bookings[0].ID)
	})

	t.Run("get by show", func(t *testing.T) {
		bookings, err := repo.GetByShow(ctx, show.ID)
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, first.ID, bookings[0].ID)
		assert.Equal(t, []int{31, 32}, bookings[0].Seats)
		assert.Equal(t, second.ID, bookings[1].ID)
	})

	t.Run("cancel flips the status once and keeps the record", func(t *testing.T) {
		changed, err := repo.Cancel(ctx, second.ID, now)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.Cancel(ctx, second.ID, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)

		got, err := repo.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingCancelled, got.Status)
		require.NotNil(t, got.CancelledAt)
		assert.True(t, now.Equal(*got.CancelledAt))

		_, err = repo.Cancel(ctx, uuid.New(), now)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestMemoryRepositories(t *testing.T) {
	shows := NewMemoryShowRepository()
	holds := NewMemoryHoldRepository()

	t.Run("shows", func(t *testing.T) {
		runShowRepositoryTests(t, shows)
	})

	t.Run("holds", func(t *testing.T) {
		runHoldRepositoryTests(t, shows, holds)
	})

	t.Run("bookings", func(t *testing.T) {
		runBookingRepositoryTests(t, shows, holds, NewMemoryBookingRepository())
	})
}

func TestMemoryHoldRepositoryCopiesSeats(t *testing.T) {
	repo := NewMemoryHoldRepository()
	hold := newTestHold(1, 1, time.Now())

	require.NoError(t, repo.Create(context.Background(), hold))
	hold.Seats[0] = 99

	got, err := repo.GetByID(context.Background(), hold.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got.Seats)
}
