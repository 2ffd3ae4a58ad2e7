package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/inventory"
	"github.com/metinatakli/seat-reservation-engine/internal/payment"
	"github.com/metinatakli/seat-reservation-engine/internal/registry"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

type dependencies struct {
	sessionManager *scs.SessionManager
	reservations   *reservation.Service
	sweeper        *reservation.Sweeper

	logger  *slog.Logger
	closers []func() error
}

func (d *dependencies) close() {
	// release in reverse order of acquisition
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Error("failed to release dependency", "error", err)
		}
	}
}

func newDependencies(cfg Config, logger *slog.Logger) (_ *dependencies, err error) {
	deps := &dependencies{logger: logger}

	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	err = checkDurability(cfg.Store, cfg.Inventory)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.closers = append(deps.closers, redisClient.Close)
	}

	deps.sessionManager = NewSessionManager(redisClient)

	rd := reservation.Dependencies{}

	var shows domain.ShowRepository

	switch cfg.Store {
	case StorePostgres:
		if cfg.DB.Migrate {
			err = repository.Migrate(cfg.DB.DSN, cfg.DB.MigrationsPath)
			if err != nil {
				return nil, err
			}
		}

		db, err := NewDatabasePool(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		deps.closers = append(deps.closers, func() error { db.Close(); return nil })

		shows = repository.NewPostgresShowRepository(db)
		rd.Holds = repository.NewPostgresHoldRepository(db)
		rd.Bookings = repository.NewPostgresBookingRepository(db)

	case StoreMemory:
		memoryShows := repository.NewMemoryShowRepository()
		if err = seedDemoShow(context.Background(), memoryShows); err != nil {
			return nil, err
		}

		shows = memoryShows
		rd.Holds = repository.NewMemoryHoldRepository()
		rd.Bookings = repository.NewMemoryBookingRepository()
		logger.Warn("using in-memory store, holds and bookings are lost on restart")

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	rd.Shows = registry.New(shows, cfg.Reservation.RegistryCacheTTL)

	switch cfg.Inventory {
	case InventoryRedis:
		if redisClient == nil {
			return nil, errors.New("redis inventory requires -redis-url")
		}
		rd.Inventory = inventory.NewRedis(redisClient)
	case InventoryMemory:
		rd.Inventory = inventory.NewMemory()
	default:
		return nil, fmt.Errorf("unknown inventory %q", cfg.Inventory)
	}

	rd.Payments, err = newPaymentVerifier(cfg)
	if err != nil {
		return nil, err
	}

	publishers, err := deps.newEventPublishers(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	rd.Events = publishers

	deps.reservations, deps.sweeper, err = NewReservations(cfg, logger, rd)
	if err != nil {
		return nil, err
	}

	return deps, nil
}

// checkDurability rejects a seat grid that outlives the ledger or is outlived
// by it. A fresh grid over a kept ledger would sell booked seats again.
func checkDurability(store, inv string) error {
	switch {
	case store == StorePostgres && inv == InventoryMemory:
		return errors.New("postgres store requires the redis inventory, an in-memory grid forgets booked seats on restart")
	case store == StoreMemory && inv == InventoryRedis:
		return errors.New("redis inventory requires the postgres store, an in-memory ledger cannot account for seats kept in redis")
	}

	return nil
}

// NewReservations builds the coordinator and its sweeper from the
// reservation settings.
func NewReservations(
	cfg Config,
	logger *slog.Logger,
	deps reservation.Dependencies) (*reservation.Service, *reservation.Sweeper, error) {

	service, err := reservation.NewService(deps, reservation.Config{
		DefaultTTL:  cfg.Reservation.HoldTTL,
		MaxTTL:      cfg.Reservation.MaxHoldTTL,
		MaxSeats:    cfg.Reservation.MaxSeats,
		SettleGrace: cfg.Reservation.SettleGrace,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sweeper := reservation.NewSweeper(service, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatch, logger)

	return service, sweeper, nil
}

func newPaymentVerifier(cfg Config) (domain.PaymentVerifier, error) {
	switch cfg.Payment.Provider {
	case PaymentStripe:
		if cfg.Payment.StripeKey == "" {
			return nil, errors.New("stripe payment verifier requires -stripe-key")
		}
		stripe.Key = cfg.Payment.StripeKey
		return payment.NewStripeVerifier(cfg.Payment.Currency), nil
	case PaymentStatic:
		return payment.NewStaticVerifier(), nil
	default:
		return nil, fmt.Errorf("unknown payment verifier %q", cfg.Payment.Provider)
	}
}

func (d *dependencies) newEventPublishers(cfg Config, redisClient *redis.Client) (domain.EventPublisher, error) {
	var publishers events.Multi

	for _, name := range cfg.Events.publishers() {
		switch name {
		case "redis":
			if redisClient == nil {
				return nil, errors.New("redis events require -redis-url")
			}
			publishers = append(publishers, events.NewRedisPublisher(redisClient))

		case "amqp":
			p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
			if err != nil {
				return nil, err
			}
			d.closers = append(d.closers, p.Close)
			publishers = append(publishers, p)

		case "kafka":
			if cfg.Events.KafkaBrokers == "" {
				return nil, errors.New("kafka events require -kafka-brokers")
			}
			p := events.NewKafkaPublisher(strings.Split(cfg.Events.KafkaBrokers, ","), cfg.Events.KafkaTopic)
			d.closers = append(d.closers, p.Close)
			publishers = append(publishers, p)

		default:
			return nil, fmt.Errorf("unknown event publisher %q", name)
		}
	}

	if len(publishers) == 0 {
		return events.Nop{}, nil
	}

	return publishers, nil
}

// seedDemoShow registers show 1 with the Diamond, Gold and Silver price
// ranges so the in-memory store has something to book.
func seedDemoShow(ctx context.Context, shows *repository.MemoryShowRepository) error {
	layout, err := domain.NewLayout([]domain.SeatCategory{
		{Name: "Diamond", From: 1, To: 10, Price: decimal.NewFromInt(300)},
		{Name: "Gold", From: 11, To: 30, Price: decimal.NewFromInt(200)},
		{Name: "Silver", From: 31, To: 50, Price: decimal.NewFromInt(100)},
	})
	if err != nil {
		return err
	}

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	return shows.Create(ctx, &domain.Show{
		ID:        1,
		MovieID:   1,
		TheaterID: 1,
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
		Layout:    layout,
	})
}

// NewSessionManager stores sessions in Redis so they are shared with the
// authentication service. Without a client sessions live in process memory.
func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	}
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
