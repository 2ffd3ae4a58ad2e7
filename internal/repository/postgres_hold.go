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

type PostgresHoldRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHoldRepository(db *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{
		db: db,
	}
}

func (p *PostgresHoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	query := `
		INSERT INTO holds (id, show_id, user_id, seats, total_amount, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.Exec(
		ctx,
		query,
		hold.ID,
		hold.ShowID,
		hold.UserID,
		hold.Seats,
		hold.TotalAmount,
		hold.State,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return domain.ErrShowNotFound
		}

		return err
	}

	return nil
}

func (p *PostgresHoldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM holds WHERE id = $1 AND state = 'Active'`

	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

const holdColumns = `id, show_id, user_id, seats, total_amount, state, created_at, expires_at`

func scanHold(row pgx.Row) (*domain.Hold, error) {
	var hold domain.Hold

	err := row.Scan(
		&hold.ID,
		&hold.ShowID,
		&hold.UserID,
		&hold.Seats,
		&hold.TotalAmount,
		&hold.State,
		&hold.CreatedAt,
		&hold.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &hold, nil
}

func (p *PostgresHoldRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1`

	hold, err := scanHold(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return hold, nil
}

func (p *PostgresHoldRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to domain.HoldState) error {
	query := `
		UPDATE holds
		SET state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`

	tag, err := p.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

func (p *PostgresHoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM holds
		WHERE state = 'Active' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]domain.Hold, 0)

	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}

		holds = append(holds, *hold)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}
