package reservation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/metinatakli/seat-reservation-engine/internal/reservation"

type metrics struct {
	holdsCreated      metric.Int64Counter
	holdConflicts     metric.Int64Counter
	holdsCancelled    metric.Int64Counter
	holdsExpired      metric.Int64Counter
	bookingsConfirmed metric.Int64Counter
	bookingsCancelled metric.Int64Counter
}

// newMetrics registers the counters on the global meter provider, which is a
// no-op until telemetry is initialized.
func newMetrics() (*metrics, error) {
	meter := otel.Meter(meterName)

	var m metrics
	var errs [6]error

	m.holdsCreated, errs[0] = meter.Int64Counter("reservation.holds.created",
		metric.WithDescription("Holds placed on seats"))
	m.holdConflicts, errs[1] = meter.Int64Counter("reservation.holds.conflicts",
		metric.WithDescription("Hold attempts rejected because a seat was taken"))
	m.holdsCancelled, errs[2] = meter.Int64Counter("reservation.holds.cancelled",
		metric.WithDescription("Holds abandoned by their owner or by a declined payment"))
	m.holdsExpired, errs[3] = meter.Int64Counter("reservation.holds.expired",
		metric.WithDescription("Holds reclaimed after their TTL"))
	m.bookingsConfirmed, errs[4] = meter.Int64Counter("reservation.bookings.confirmed",
		metric.WithDescription("Holds converted into bookings"))
	m.bookingsCancelled, errs[5] = meter.Int64Counter("reservation.bookings.cancelled",
		metric.WithDescription("Bookings cancelled and their seats returned"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metrics) add(ctx context.Context, counter metric.Int64Counter, showID int, n int) {
	counter.Add(ctx, int64(n), metric.WithAttributes(attribute.Int("show_id", showID)))
}
