package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type PostgresShowRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowRepository(db *pgxpool.Pool) *PostgresShowRepository {
	return &PostgresShowRepository{
		db: db,
	}
}

func (p *PostgresShowRepository) GetByID(ctx context.Context, id int) (*domain.Show, error) {
	query := `
		SELECT id, movie_id, theater_id, start_time, end_time
		FROM shows
		WHERE id = $1
	`

	var show domain.Show

	err := p.db.QueryRow(ctx, query, id).Scan(
		&show.ID,
		&show.MovieID,
		&show.TheaterID,
		&show.StartTime,
		&show.EndTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShowNotFound
		}

		return nil, err
	}

	categories, err := p.retrieveSeatCategories(ctx, id)
	if err != nil {
		return nil, err
	}

	layout, err := domain.NewLayout(categories)
	if err != nil {
		return nil, err
	}

	show.Layout = layout

	return &show, nil
}

func (p *PostgresShowRepository) retrieveSeatCategories(ctx context.Context, showID int) ([]domain.SeatCategory, error) {
	query := `
		SELECT name, seat_from, seat_to, price
		FROM seat_categories
		WHERE show_id = $1
		ORDER BY seat_from
	`

	rows, err := p.db.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.SeatCategory, 0)

	for rows.Next() {
		var category domain.SeatCategory

		err := rows.Scan(&category.Name, &category.From, &category.To, &category.Price)
		if err != nil {
			return nil, err
		}

		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

// Create stores a show with its layout. The catalog collaborator owns shows;
// this is used to seed them.
func (p *PostgresShowRepository) Create(ctx context.Context, show *domain.Show) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO shows (movie_id, theater_id, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`

		err := tx.QueryRow(
			ctx,
			query,
			show.MovieID,
			show.TheaterID,
			show.StartTime,
			show.EndTime).Scan(&show.ID)

		if err != nil {
			return err
		}

		query = `
			INSERT INTO seat_categories (show_id, name, seat_from, seat_to, price)
			VALUES ($1, $2, $3, $4, $5)
		`

		batch := &pgx.Batch{}
		for _, c := range show.Layout.Categories {
			batch.Queue(query, show.ID, c.Name, c.From, c.To, c.Price)
		}

		return tx.SendBatch(ctx, batch).Close()
	})
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
