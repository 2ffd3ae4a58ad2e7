package integration_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/app"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/inventory"
	"github.com/metinatakli/seat-reservation-engine/internal/payment"
	"github.com/metinatakli/seat-reservation-engine/internal/registry"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Sweeper     *reservation.Sweeper
}

// newTestApp wires the full stack against the containers: Postgres ledger,
// Redis seat inventory, Redis sessions and Redis event fan-out.
func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	shows := repository.NewPostgresShowRepository(db)

	deps := reservation.Dependencies{
		Shows:     registry.New(shows, cfg.Reservation.RegistryCacheTTL),
		Inventory: inventory.NewRedis(redisClient),
		Holds:     repository.NewPostgresHoldRepository(db),
		Bookings:  repository.NewPostgresBookingRepository(db),
		Payments:  payment.NewStaticVerifier(),
		Events:    events.NewRedisPublisher(redisClient),
	}

	service, sweeper, err := app.NewReservations(cfg, logger, deps)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, err
	}

	application := app.NewApp(
		cfg,
		logger,
		appvalidator.NewValidator(),
		app.NewSessionManager(redisClient),
		service,
		sweeper,
	)

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Sweeper:     sweeper,
	}, nil
}

func (a *TestApp) Close() {
	a.RedisClient.Close()
	a.DB.Close()
}

// seedShow stores the test show. Identities are reset between tests so it
// always gets TestShowId.
func (a *TestApp) seedShow(ctx context.Context) error {
	layout, err := domain.NewLayout([]domain.SeatCategory{
		{Name: "Diamond", From: 1, To: 10, Price: decimal.NewFromInt(300)},
		{Name: "Gold", From: 11, To: 30, Price: decimal.NewFromInt(200)},
		{Name: "Silver", From: 31, To: TestShowSeats, Price: decimal.NewFromInt(100)},
	})
	if err != nil {
		return err
	}

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	return repository.NewPostgresShowRepository(a.DB).Create(ctx, &domain.Show{
		MovieID:   TestMovieId,
		TheaterID: TestTheaterId,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Layout:    layout,
	})
}

func (a *TestApp) reset(ctx context.Context) error {
	_, err := a.DB.Exec(ctx, `TRUNCATE booking_seats, bookings, holds, seat_categories, shows RESTART IDENTITY CASCADE`)
	if err != nil {
		return err
	}

	return a.RedisClient.FlushAll(ctx).Err()
}
