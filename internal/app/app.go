package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/seat-reservation-engine/internal/reservation"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
	"github.com/metinatakli/seat-reservation-engine/internal/vcs"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"golang.org/x/sync/errgroup"
)

const serviceName = "seat-reservation-engine"

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	reservations   *reservation.Service
	sweeper        *reservation.Sweeper
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	reservations *reservation.Service,
	sweeper *reservation.Sweeper) *Application {

	return &Application{
		config:         cfg,
		logger:         logger,
		validator:      validator,
		sessionManager: sessionManager,
		reservations:   reservations,
		sweeper:        sweeper,
	}
}

func Run() error {
	cfg := parseFlags(os.Args[1:])

	if cfg.displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(logger.Handler(), otelslog.NewHandler(serviceName)))
	}

	deps, err := newDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	app := NewApp(
		cfg,
		logger,
		appvalidator.NewValidator(),
		deps.sessionManager,
		deps.reservations,
		deps.sweeper,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.serve(ctx)
}

// serve runs the HTTP server and the hold sweeper until ctx is cancelled or
// either of them fails.
func (app *Application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down server", "addr", srv.Addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return app.sweeper.Run(gctx)
	})

	err := g.Wait()
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)
	r.Use(app.sessionManager.LoadAndSave)

	r.Get("/healthcheck", app.GetHealth)
	r.Get("/shows/{showId}/seats", app.GetSeatMapHandler)

	if app.config.sessionsEnabled() {
		r.Post("/sessions", app.CreateSessionHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(app.requireAuthentication)

		r.Delete("/sessions", app.Logout)

		r.Post("/holds", app.CreateHoldHandler)
		r.Get("/holds/{holdId}", app.GetHoldHandler)
		r.Post("/holds/confirm", app.ConfirmHoldHandler)
		r.Post("/holds/cancel", app.CancelHoldHandler)

		r.Get("/bookings/{bookingId}", app.GetBookingHandler)
		r.Post("/bookings/cancel", app.CancelBookingHandler)
		r.Get("/users/me/bookings", app.GetUserBookingsHandler)
		r.Get("/shows/{showId}/bookings", app.GetShowBookingsHandler)
	})

	return r
}
