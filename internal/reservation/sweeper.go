package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const (
	DefaultSweepInterval = 30 * time.Second
	DefaultSweepBatch    = 500
)

// Sweeper periodically reclaims seats of holds that outlived their TTL.
type Sweeper struct {
	service  *Service
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewSweeper(service *Service, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	if batch <= 0 {
		batch = DefaultSweepBatch
	}

	return &Sweeper{
		service:  service,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run sweeps every interval until ctx is done. A failed sweep is retried on
// the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting hold sweeper", "interval", s.interval.String(), "batch", s.batch)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopped hold sweeper")
			return nil

		case <-ticker.C:
			reclaimed, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("hold sweep failed", "error", err, "reclaimed", reclaimed)
				continue
			}

			if reclaimed > 0 {
				s.logger.Info("reclaimed expired holds", "count", reclaimed)
			}
		}
	}
}

// Sweep expires every overdue active hold and returns how many it reclaimed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	reclaimed := 0

	for {
		holds, err := s.service.holds.ListExpired(ctx, s.service.now(), s.batch)
		if err != nil {
			return reclaimed, err
		}

		var errs []error
		settled := 0
		for _, hold := range holds {
			state, err := s.service.ExpireHold(ctx, hold)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			if state != domain.HoldActive {
				settled++
			}

			if state == domain.HoldExpired {
				reclaimed++
			}
		}

		// holds left active would be listed again
		if len(errs) > 0 || settled < len(holds) || len(holds) < s.batch {
			return reclaimed, errors.Join(errs...)
		}
	}
}
