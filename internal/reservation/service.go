// Package reservation coordinates the hold, confirm, expire and cancel
// protocol between the show registry, the seat inventory, the holds table and
// the booking ledger.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// ShowLayouts resolves a show and its seat layout.
type ShowLayouts interface {
	GetLayout(ctx context.Context, showID int) (*domain.Show, error)
}

// DefaultSettleGrace is how long past its expiry a hold whose booking is
// missing from the ledger is left alone before its seats are reclaimed.
const DefaultSettleGrace = 2 * time.Minute

type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	MaxSeats   int
	// SettleGrace must outlast any confirmation still writing its booking.
	SettleGrace time.Duration
}

type Dependencies struct {
	Shows     ShowLayouts
	Inventory domain.SeatInventory
	Holds     domain.HoldRepository
	Bookings  domain.BookingRepository
	Payments  domain.PaymentVerifier
	Events    domain.EventPublisher
}

// Service is the only writer of seat inventory transitions.
type Service struct {
	shows     ShowLayouts
	inventory domain.SeatInventory
	holds     domain.HoldRepository
	bookings  domain.BookingRepository
	payments  domain.PaymentVerifier
	events    domain.EventPublisher

	cfg     Config
	logger  *slog.Logger
	metrics *metrics
	now     func() time.Time

	materialized sync.Map // show id -> struct{}
}

func NewService(deps Dependencies, cfg Config, logger *slog.Logger) (*Service, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to register reservation metrics: %w", err)
	}

	if cfg.SettleGrace <= 0 {
		cfg.SettleGrace = DefaultSettleGrace
	}

	return &Service{
		shows:     deps.Shows,
		inventory: deps.Inventory,
		holds:     deps.Holds,
		bookings:  deps.Bookings,
		payments:  deps.Payments,
		events:    deps.Events,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}, nil
}

type HoldRequest struct {
	ShowID int
	Seats  []int
	UserID int
	// TTL falls back to the configured default when zero.
	TTL time.Duration
}

func (s *Service) RequestHold(ctx context.Context, req HoldRequest) (*domain.Hold, error) {
	ttl, err := s.validateHoldRequest(req)
	if err != nil {
		return nil, err
	}

	show, err := s.shows.GetLayout(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}

	total, err := show.Layout.Total(req.Seats)
	if err != nil {
		return nil, err
	}

	err = s.ensureMaterialized(ctx, show)
	if err != nil {
		return nil, err
	}

	now := s.now()
	hold := &domain.Hold{
		ID:          uuid.New(),
		ShowID:      show.ID,
		Seats:       append([]int(nil), req.Seats...),
		UserID:      req.UserID,
		TotalAmount: total,
		State:       domain.HoldActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	logger := s.logger.With("show_id", show.ID, "hold_id", hold.ID)

	// the row exists before any seat is taken, so the sweeper can always find
	// seats this hold may have claimed
	err = s.holds.Create(ctx, hold)
	if err != nil {
		return nil, fmt.Errorf("failed to record hold: %w", err)
	}

	err = s.inventory.TryHold(ctx, show.ID, hold.Seats, hold.ID, hold.ExpiresAt)
	if err != nil {
		var unavailable *domain.SeatUnavailableError
		if errors.As(err, &unavailable) {
			logger.Warn("hold rejected due to seat contention", "conflict_seats", unavailable.Seats)
			s.metrics.add(ctx, s.metrics.holdConflicts, show.ID, 1)
		}

		if rejectedByInventory(err) {
			delErr := s.holds.Delete(context.WithoutCancel(ctx), hold.ID)
			if delErr != nil {
				logger.Error("failed to delete rejected hold", "error", delErr)
			}
		} else {
			// the seats may have been taken anyway; the sweeper reclaims them
			// once the hold expires
			logger.Error("hold outcome unknown, leaving it to the sweeper", "error", err)
		}

		return nil, err
	}

	s.metrics.add(ctx, s.metrics.holdsCreated, show.ID, 1)
	s.publish(ctx, domain.EventSeatsHeld, hold.ShowID, hold.Seats, &hold.ID, nil, hold.UserID)

	return hold, nil
}

// rejectedByInventory reports whether TryHold definitely left every seat
// untouched.
func rejectedByInventory(err error) bool {
	return errors.Is(err, domain.ErrSeatUnavailable) ||
		errors.Is(err, domain.ErrSeatNotFound) ||
		errors.Is(err, domain.ErrShowNotFound) ||
		errors.Is(err, domain.ErrInvalidLayout)
}

func (s *Service) validateHoldRequest(req HoldRequest) (time.Duration, error) {
	if len(req.Seats) == 0 {
		return 0, fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidRequest)
	}

	if s.cfg.MaxSeats > 0 && len(req.Seats) > s.cfg.MaxSeats {
		return 0, fmt.Errorf("%w: at most %d seats can be held at once", domain.ErrInvalidRequest, s.cfg.MaxSeats)
	}

	seen := make(map[int]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if _, dup := seen[seat]; dup {
			return 0, fmt.Errorf("%w: seat %d is requested more than once", domain.ErrInvalidRequest, seat)
		}
		seen[seat] = struct{}{}
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}

	if ttl <= 0 {
		return 0, fmt.Errorf("%w: hold ttl must be positive", domain.ErrInvalidRequest)
	}

	if s.cfg.MaxTTL > 0 && ttl > s.cfg.MaxTTL {
		return 0, fmt.Errorf("%w: hold ttl must not exceed %s", domain.ErrInvalidRequest, s.cfg.MaxTTL)
	}

	return ttl, nil
}

func (s *Service) ensureMaterialized(ctx context.Context, show *domain.Show) error {
	if _, ok := s.materialized.Load(show.ID); ok {
		return nil
	}

	err := s.inventory.Materialize(ctx, show.ID, show.Layout.TotalSeats)
	if err != nil {
		return err
	}

	s.materialized.Store(show.ID, struct{}{})

	return nil
}

// GetHold returns the hold if it belongs to userID.
func (s *Service) GetHold(ctx context.Context, holdID uuid.UUID, userID int) (*domain.Hold, error) {
	hold, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	if hold.UserID != userID {
		return nil, domain.ErrHoldNotFound
	}

	return hold, nil
}

// Confirm turns an active hold into a booking once the payment token has been
// verified. The inventory transition commits before the ledger write; a
// booking missing from the ledger is reclaimed by the sweeper.
func (s *Service) Confirm(ctx context.Context, holdID uuid.UUID, userID int, paymentToken string) (*domain.Booking, error) {
	hold, err := s.GetHold(ctx, holdID, userID)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("show_id", hold.ShowID, "hold_id", hold.ID)
	detached := context.WithoutCancel(ctx)

	if hold.State != domain.HoldActive {
		return nil, fmt.Errorf("%w: hold is %s", domain.ErrHoldExpired, hold.State)
	}

	if hold.ExpiredAt(s.now()) {
		_, err := s.ExpireHold(ctx, *hold)
		if err != nil {
			logger.Error("failed to reclaim overdue hold", "error", err)
		}

		return nil, domain.ErrHoldExpired
	}

	// no seat lock is held while the payment collaborator answers
	paymentRef, err := s.payments.Verify(ctx, paymentToken, hold.TotalAmount)
	if err != nil {
		if !errors.Is(err, domain.ErrPaymentFailed) {
			return nil, fmt.Errorf("failed to verify payment: %w", err)
		}

		logger.Warn("payment declined, releasing hold")

		_, releaseErr := s.cancel(detached, hold)
		if releaseErr != nil {
			logger.Error("failed to release hold after declined payment", "error", releaseErr)
		}

		return nil, err
	}

	bookingID := domain.BookingIDFor(hold.ID)
	logger = logger.With("booking_id", bookingID)

	err = s.inventory.Confirm(ctx, hold.ShowID, hold.ID, bookingID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrHoldExpired) {
			// lost the race against the sweeper or a cancel; sync the projection
			if _, syncErr := s.ExpireHold(detached, *hold); syncErr != nil {
				logger.Error("failed to sync settled hold", "error", syncErr)
			}

			logger.Warn("confirmation arrived after the hold was settled", "payment_ref", paymentRef)
		}

		return nil, err
	}

	booking := &domain.Booking{
		ID:          bookingID,
		HoldID:      hold.ID,
		ShowID:      hold.ShowID,
		UserID:      hold.UserID,
		Seats:       hold.Seats,
		TotalAmount: hold.TotalAmount,
		Status:      domain.BookingConfirmed,
		PaymentRef:  paymentRef,
		CreatedAt:   s.now(),
	}

	err = s.bookings.Create(ctx, booking)
	if err != nil {
		logger.Error("failed to record booking", "error", err, "payment_ref", paymentRef)
		s.returnUnrecordedSeats(detached, hold, bookingID, logger)

		return nil, fmt.Errorf("failed to record booking: %w", err)
	}

	if !s.now().Before(s.settleDeadline(hold)) {
		// the sweeper may have handed the seats out while the booking was written
		logger.Error("booking recorded after the settle deadline, rolling it back", "payment_ref", paymentRef)
		s.rollBackBooking(detached, hold, booking, logger)

		return nil, fmt.Errorf("%w: booking was recorded too late", domain.ErrHoldExpired)
	}

	_, err = s.setState(detached, hold.ID, domain.HoldConfirmed)
	if err != nil {
		// the sweeper reconciles the projection from the ledger
		logger.Error("failed to mark hold as confirmed", "error", err)
	}

	s.metrics.add(ctx, s.metrics.bookingsConfirmed, booking.ShowID, 1)
	s.publish(ctx, domain.EventBookingConfirmed, booking.ShowID, booking.Seats, &booking.HoldID, &booking.ID, booking.UserID)

	return booking, nil
}

func (s *Service) settleDeadline(hold *domain.Hold) time.Time {
	return hold.ExpiresAt.Add(s.cfg.SettleGrace)
}

// returnUnrecordedSeats frees booked seats after a failed ledger write, unless
// the write may have landed after all.
func (s *Service) returnUnrecordedSeats(ctx context.Context, hold *domain.Hold, bookingID uuid.UUID, logger *slog.Logger) {
	_, err := s.bookings.GetByID(ctx, bookingID)
	if !errors.Is(err, domain.ErrRecordNotFound) {
		logger.Error("booking may have been recorded, leaving the hold to the sweeper", "error", err)
		return
	}

	err = s.inventory.ReleaseBooked(ctx, hold.ShowID, bookingID)
	if err != nil {
		logger.Error("failed to return seats of an unrecorded booking", "error", err)
		return
	}

	if _, err := s.setState(ctx, hold.ID, domain.HoldCancelled); err != nil {
		logger.Error("failed to mark hold as cancelled", "error", err)
	}
}

func (s *Service) rollBackBooking(ctx context.Context, hold *domain.Hold, booking *domain.Booking, logger *slog.Logger) {
	_, err := s.bookings.Cancel(ctx, booking.ID, s.now())
	if err != nil {
		logger.Error("failed to cancel late booking", "error", err)
	}

	err = s.inventory.ReleaseBooked(ctx, hold.ShowID, booking.ID)
	if err != nil {
		logger.Error("failed to return seats of a late booking", "error", err)
	}

	if _, err := s.setState(ctx, hold.ID, domain.HoldExpired); err != nil {
		logger.Error("failed to mark hold as expired", "error", err)
	}
}

// CancelHold abandons a hold before confirmation. Cancelling a settled hold
// is a no-op.
func (s *Service) CancelHold(ctx context.Context, holdID uuid.UUID, userID int) error {
	hold, err := s.GetHold(ctx, holdID, userID)
	if err != nil {
		return err
	}

	if hold.State.Terminal() {
		return nil
	}

	_, err = s.cancel(ctx, hold)

	return err
}

func (s *Service) cancel(ctx context.Context, hold *domain.Hold) (domain.HoldState, error) {
	state, err := s.inventory.Release(ctx, hold.ShowID, hold.ID)
	if err != nil {
		return "", fmt.Errorf("failed to release hold: %w", err)
	}

	if state == "" {
		state = domain.HoldCancelled
	}

	changed, err := s.setState(ctx, hold.ID, state)
	if err != nil {
		return "", err
	}

	if changed && state == domain.HoldCancelled {
		s.metrics.add(ctx, s.metrics.holdsCancelled, hold.ShowID, 1)
		s.publish(ctx, domain.EventSeatsReleased, hold.ShowID, hold.Seats, &hold.ID, nil, hold.UserID)
	}

	return state, nil
}

// ExpireHold reclaims an overdue hold and brings the holds table in line with
// the inventory. It returns the hold's resulting state, which is Active when
// the hold is not due yet.
func (s *Service) ExpireHold(ctx context.Context, hold domain.Hold) (domain.HoldState, error) {
	state, err := s.inventory.Expire(ctx, hold.ShowID, hold.ID, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to expire hold: %w", err)
	}

	switch state {
	case domain.HoldActive:
		return state, nil
	case domain.HoldConfirmed, "":
		// booked, or unknown to the inventory; the ledger decides
		return s.reconcile(ctx, hold, state)
	}

	changed, err := s.setState(ctx, hold.ID, state)
	if err != nil {
		return "", err
	}

	if changed && state == domain.HoldExpired {
		s.logger.Info("hold expired", "show_id", hold.ShowID, "hold_id", hold.ID)
		s.metrics.add(ctx, s.metrics.holdsExpired, hold.ShowID, 1)
		s.publish(ctx, domain.EventHoldExpired, hold.ShowID, hold.Seats, &hold.ID, nil, hold.UserID)
	}

	return state, nil
}

// reconcile settles an active hold the inventory no longer counts as held.
// A hold with a booking in the ledger is Confirmed. Without one, its booked
// seats are freed once the settle deadline has passed.
func (s *Service) reconcile(ctx context.Context, hold domain.Hold, inventoryState domain.HoldState) (domain.HoldState, error) {
	bookingID := domain.BookingIDFor(hold.ID)

	_, err := s.bookings.GetByID(ctx, bookingID)
	if err == nil {
		_, err = s.setState(ctx, hold.ID, domain.HoldConfirmed)
		if err != nil {
			return "", err
		}

		return domain.HoldConfirmed, nil
	}

	if !errors.Is(err, domain.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up booking of hold: %w", err)
	}

	if s.now().Before(s.settleDeadline(&hold)) {
		return domain.HoldActive, nil
	}

	err = s.inventory.ReleaseBooked(ctx, hold.ShowID, bookingID)
	if err != nil {
		return "", fmt.Errorf("failed to release seats of unrecorded booking: %w", err)
	}

	changed, err := s.setState(ctx, hold.ID, domain.HoldExpired)
	if err != nil {
		return "", err
	}

	if changed {
		s.logger.Warn("reclaimed hold without a booking",
			"show_id", hold.ShowID, "hold_id", hold.ID, "inventory_state", inventoryState)
		s.metrics.add(ctx, s.metrics.holdsExpired, hold.ShowID, 1)

		if inventoryState == domain.HoldConfirmed {
			s.publish(ctx, domain.EventHoldExpired, hold.ShowID, hold.Seats, &hold.ID, nil, hold.UserID)
		}
	}

	return domain.HoldExpired, nil
}

// setState moves the stored hold out of Active and reports whether this call
// made the change.
func (s *Service) setState(ctx context.Context, holdID uuid.UUID, to domain.HoldState) (bool, error) {
	err := s.holds.UpdateState(ctx, holdID, domain.HoldActive, to)
	if err != nil {
		if errors.Is(err, domain.ErrEditConflict) {
			return false, nil
		}

		return false, fmt.Errorf("failed to update hold state: %w", err)
	}

	return true, nil
}

// CancelBooking flips the booking to Cancelled and returns its seats. Both
// steps are idempotent, so retrying after a partial failure completes it.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID int) error {
	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return err
	}

	changed, err := s.bookings.Cancel(ctx, booking.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	err = s.inventory.ReleaseBooked(context.WithoutCancel(ctx), booking.ShowID, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to release booked seats: %w", err)
	}

	if changed {
		s.metrics.add(ctx, s.metrics.bookingsCancelled, booking.ShowID, 1)
		s.publish(ctx, domain.EventBookingCancelled, booking.ShowID, booking.Seats, &booking.HoldID, &booking.ID, booking.UserID)
	}

	return nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID, userID int) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrBookingNotFound
	}

	return booking, nil
}

func (s *Service) BookingsByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	return s.bookings.GetByUser(ctx, userID, pagination)
}

func (s *Service) BookingsByShow(ctx context.Context, showID int) ([]domain.Booking, error) {
	_, err := s.shows.GetLayout(ctx, showID)
	if err != nil {
		return nil, err
	}

	return s.bookings.GetByShow(ctx, showID)
}

// SeatMap returns the status of every seat in the show's layout.
func (s *Service) SeatMap(ctx context.Context, showID int) (map[int]domain.SeatStatus, error) {
	show, err := s.shows.GetLayout(ctx, showID)
	if err != nil {
		return nil, err
	}

	err = s.ensureMaterialized(ctx, show)
	if err != nil {
		return nil, err
	}

	return s.inventory.Statuses(ctx, show.ID)
}

func (s *Service) publish(
	ctx context.Context,
	eventType domain.EventType,
	showID int,
	seats []int,
	holdID, bookingID *uuid.UUID,
	userID int) {

	if s.events == nil {
		return
	}

	event := domain.Event{
		Type:       eventType,
		ShowID:     showID,
		Seats:      seats,
		HoldID:     holdID,
		BookingID:  bookingID,
		UserID:     userID,
		OccurredAt: s.now(),
	}

	err := s.events.Publish(ctx, event)
	if err != nil {
		s.logger.Error("failed to publish event", "type", eventType, "show_id", showID, "error", err)
	}
}
