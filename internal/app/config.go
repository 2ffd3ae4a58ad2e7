package app

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	InventoryMemory = "memory"
	InventoryRedis  = "redis"

	PaymentStatic = "static"
	PaymentStripe = "stripe"
)

type Config struct {
	Port             int
	Env              string
	Store            string
	Inventory        string
	OtelCollectorUrl string
	DB               DBConfig
	Redis            RedisConfig
	Reservation      ReservationConfig
	Payment          PaymentConfig
	Events           EventsConfig

	displayVersion bool
}

type DBConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleTime    time.Duration
	Migrate        bool
	MigrationsPath string
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type ReservationConfig struct {
	HoldTTL          time.Duration
	MaxHoldTTL       time.Duration
	MaxSeats         int
	SweepInterval    time.Duration
	SweepBatch       int
	RegistryCacheTTL time.Duration
	SettleGrace      time.Duration
}

type PaymentConfig struct {
	Provider  string
	StripeKey string
	Currency  string
}

type EventsConfig struct {
	// Publishers is a comma separated list of redis, amqp and kafka.
	Publishers   string
	AMQPURL      string
	AMQPExchange string
	KafkaBrokers string
	KafkaTopic   string
}

// sessionsEnabled reports whether sessions may be opened without credentials.
func (c Config) sessionsEnabled() bool {
	return c.Env == "dev" || c.Env == "test"
}

func (c EventsConfig) publishers() []string {
	var names []string
	for _, name := range strings.Split(c.Publishers, ",") {
		name = strings.TrimSpace(name)
		if name != "" && name != "none" {
			names = append(names, name)
		}
	}
	return names
}

func parseFlags(args []string) Config {
	var cfg Config

	fs := flag.NewFlagSet("seat-reservation-engine", flag.ExitOnError)

	fs.IntVar(&cfg.Port, "port", 3000, "server port")
	fs.StringVar(&cfg.Env, "env", "prod", "Environment (dev|test|staging|prod), dev and test expose POST /sessions")
	fs.StringVar(&cfg.Store, "store", StorePostgres, "Holds and bookings store (memory|postgres)")
	fs.StringVar(&cfg.Inventory, "inventory", InventoryRedis, "Seat inventory (memory|redis)")
	fs.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", os.Getenv("OTEL_COLLECTOR_URL"), "OpenTelemetry collector gRPC endpoint")

	fs.StringVar(&cfg.DB.DSN, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	fs.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")
	fs.BoolVar(&cfg.DB.Migrate, "db-migrate", false, "Apply database migrations on startup")
	fs.StringVar(&cfg.DB.MigrationsPath, "db-migrations-path", "file://migrations", "Database migrations source")

	fs.StringVar(&cfg.Redis.URL, "redis-url", os.Getenv("REDIS_URL"), "Redis address")
	fs.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	fs.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	fs.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	fs.DurationVar(&cfg.Reservation.HoldTTL, "hold-ttl", 10*time.Minute, "Hold TTL used when a request does not name one")
	fs.DurationVar(&cfg.Reservation.MaxHoldTTL, "hold-max-ttl", 30*time.Minute, "Longest TTL a hold may request")
	fs.IntVar(&cfg.Reservation.MaxSeats, "max-seats", 10, "Maximum seats per hold")
	fs.DurationVar(&cfg.Reservation.SweepInterval, "sweep-interval", reservation.DefaultSweepInterval, "Interval between expired hold sweeps")
	fs.IntVar(&cfg.Reservation.SweepBatch, "sweep-batch", reservation.DefaultSweepBatch, "Expired holds reclaimed per batch")
	fs.DurationVar(&cfg.Reservation.SettleGrace, "settle-grace", reservation.DefaultSettleGrace, "Time past expiry before seats of a hold without a booking are reclaimed")
	fs.DurationVar(&cfg.Reservation.RegistryCacheTTL, "registry-cache-ttl", 5*time.Minute, "Show layout cache TTL (0 disables caching)")

	fs.StringVar(&cfg.Payment.Provider, "payment", PaymentStripe, "Payment verifier (static|stripe)")
	fs.StringVar(&cfg.Payment.StripeKey, "stripe-key", os.Getenv("STRIPE_KEY"), "Stripe secret key")
	fs.StringVar(&cfg.Payment.Currency, "payment-currency", "inr", "Currency payments are expected in")

	fs.StringVar(&cfg.Events.Publishers, "events", "redis", "Event publishers (none|redis|amqp|kafka, comma separated)")
	fs.StringVar(&cfg.Events.AMQPURL, "amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ URL")
	fs.StringVar(&cfg.Events.AMQPExchange, "amqp-exchange", events.DefaultExchange, "RabbitMQ topic exchange for events")
	fs.StringVar(&cfg.Events.KafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Kafka brokers, comma separated")
	fs.StringVar(&cfg.Events.KafkaTopic, "kafka-topic", events.DefaultTopic, "Kafka topic for events")

	fs.BoolVar(&cfg.displayVersion, "version", false, "Display version and exit")

	fs.Parse(args)

	return cfg
}
