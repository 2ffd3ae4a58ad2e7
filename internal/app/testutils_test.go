package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/inventory"
	"github.com/metinatakli/seat-reservation-engine/internal/payment"
	"github.com/metinatakli/seat-reservation-engine/internal/registry"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
	"github.com/metinatakli/seat-reservation-engine/internal/validator"
	"github.com/stretchr/testify/require"
)

const (
	testShowID = 1
	testUserID = 7
	otherUser  = 8
)

func testConfig() Config {
	return Config{
		Port: 3000,
		Env:  "test",
		Reservation: ReservationConfig{
			HoldTTL:          10 * time.Minute,
			MaxHoldTTL:       30 * time.Minute,
			MaxSeats:         10,
			SweepInterval:    time.Second,
			SweepBatch:       10,
			RegistryCacheTTL: time.Minute,
		},
	}
}

// newTestApplication wires the handlers to an in-memory coordinator serving
// the demo show. Options may replace any collaborator.
func newTestApplication(t *testing.T, opts ...func(*reservation.Dependencies)) *Application {
	t.Helper()

	shows := repository.NewMemoryShowRepository()
	require.NoError(t, seedDemoShow(context.Background(), shows))

	deps := reservation.Dependencies{
		Shows:     registry.New(shows, time.Minute),
		Inventory: inventory.NewMemory(),
		Holds:     repository.NewMemoryHoldRepository(),
		Bookings:  repository.NewMemoryBookingRepository(),
		Payments:  payment.NewStaticVerifier(),
		Events:    events.Nop{},
	}

	for _, opt := range opts {
		opt(&deps)
	}

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service, sweeper, err := NewReservations(cfg, logger, deps)
	require.NoError(t, err)

	return NewApp(cfg, logger, validator.NewValidator(), NewSessionManager(nil), service, sweeper)
}

func newRequest(t *testing.T, method, url string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	if reader != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}

	return httptest.NewRecorder(), r
}

// login opens a session for userID and returns its cookie.
func login(t *testing.T, handler http.Handler, userID int) *http.Cookie {
	t.Helper()

	w, r := newRequest(t, http.MethodPost, "/sessions", api.CreateSessionRequest{UserId: userID}, nil)
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}

	t.Fatal("no session cookie in login response")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())

	return v
}

func ptr[T any](v T) *T {
	return &v
}
