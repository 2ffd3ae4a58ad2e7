package integration_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "seat_reservation"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	cfg            app.Config
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	s.Require().NoError(err, "failed to start postgres container")
	s.dbContainer = postgresContainer

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err, "failed to start redis container")
	s.cacheContainer = redisContainer

	s.cfg = app.Config{
		Port:      3000,
		Env:       "test",
		Store:     app.StorePostgres,
		Inventory: app.InventoryRedis,
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Reservation: app.ReservationConfig{
			HoldTTL:          10 * time.Minute,
			MaxHoldTTL:       30 * time.Minute,
			MaxSeats:         10,
			SweepInterval:    time.Second,
			SweepBatch:       100,
			RegistryCacheTTL: time.Minute,
			SettleGrace:      time.Second,
		},
	}
}

// SetupTest starts every test from an empty ledger and inventory with a
// single seeded show. The coordinator is rebuilt as well since it remembers
// which shows it has materialized.
func (s *BaseSuite) SetupTest() {
	testApp, err := newTestApp(s.cfg)
	s.Require().NoError(err, "cannot initialize app")

	ctx := context.Background()
	s.Require().NoError(testApp.reset(ctx))
	s.Require().NoError(testApp.seedShow(ctx))

	s.app = testApp
}

func (s *BaseSuite) TearDownTest() {
	if s.app != nil {
		s.app.Close()
	}
}

func (s *BaseSuite) TearDownSuite() {
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	Cookies          []*http.Cookie
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp) {
	t.Run(s.Name, func(t *testing.T) {
		req := prepareRequest(s.Method, s.URL, s.Body, s.Headers, s.Cookies)

		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		rec := httptest.NewRecorder()
		testApp.App.Routes().ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		require.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}

func assertRowCount(t testing.TB, app *TestApp, want int, query string, args ...any) {
	t.Helper()

	var got int
	require.NoError(t, app.DB.QueryRow(context.Background(), query, args...).Scan(&got))
	assert.Equal(t, want, got, query)
}
