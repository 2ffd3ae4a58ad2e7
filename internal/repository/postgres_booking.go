package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, hold_id, show_id, user_id, total_amount, status, payment_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err := tx.Exec(
			ctx,
			query,
			booking.ID,
			booking.HoldID,
			booking.ShowID,
			booking.UserID,
			booking.TotalAmount,
			booking.Status,
			booking.PaymentRef,
			booking.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrEditConflict
			}

			return err
		}

		rows := make([][]any, 0, len(booking.Seats))
		for _, seat := range booking.Seats {
			rows = append(rows, []any{booking.ID, booking.ShowID, seat})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "show_id", "seat_number"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

const bookingSelect = `
	SELECT
		b.id,
		b.hold_id,
		b.show_id,
		b.user_id,
		ARRAY(SELECT bs.seat_number FROM booking_seats bs WHERE bs.booking_id = b.id ORDER BY bs.seat_number),
		b.total_amount,
		b.status,
		b.payment_ref,
		b.created_at,
		b.cancelled_at
	FROM bookings b
`

func scanBooking(row pgx.Row, dest ...any) (*domain.Booking, error) {
	var booking domain.Booking

	fields := append(dest,
		&booking.ID,
		&booking.HoldID,
		&booking.ShowID,
		&booking.UserID,
		&booking.Seats,
		&booking.TotalAmount,
		&booking.Status,
		&booking.PaymentRef,
		&booking.CreatedAt,
		&booking.CancelledAt,
	)

	err := row.Scan(fields...)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := bookingSelect + ` WHERE b.id = $1`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'Cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'Confirmed'
	`

	tag, err := p.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool

	err = p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	if !exists {
		return false, domain.ErrRecordNotFound
	}

	return false, nil
}

func (p *PostgresBookingRepository) GetByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	query := `
		SELECT COUNT(*) OVER(), q.*
		FROM (` + bookingSelect + ` WHERE b.user_id = $1) q
		ORDER BY q.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	totalRecords := 0

	for rows.Next() {
		booking, err := scanBooking(rows, &totalRecords)
		if err != nil {
			return nil, nil, err
		}

		bookings = append(bookings, *booking)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return bookings, metadata, nil
}

func (p *PostgresBookingRepository) GetByShow(ctx context.Context, showID int) ([]domain.Booking, error) {
	query := bookingSelect + ` WHERE b.show_id = $1 ORDER BY b.created_at`

	rows, err := p.db.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, *booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
