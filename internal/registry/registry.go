// Package registry serves show layouts from the catalog with a short-lived
// read-through cache.
package registry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	show     *domain.Show
	loadedAt time.Time
}

type Registry struct {
	shows domain.ShowRepository
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[int]entry
	group singleflight.Group
}

// New returns a registry that keeps a loaded show for ttl. A ttl of zero
// disables caching.
func New(shows domain.ShowRepository, ttl time.Duration) *Registry {
	return &Registry{
		shows: shows,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[int]entry),
	}
}

func (r *Registry) GetLayout(ctx context.Context, showID int) (*domain.Show, error) {
	if show, ok := r.cached(showID); ok {
		return show, nil
	}

	// concurrent misses for one show share a single catalog read, which must
	// outlive the caller that started it
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := r.group.Do(strconv.Itoa(showID), func() (interface{}, error) {
		show, err := r.shows.GetByID(loadCtx, showID)
		if err != nil {
			return nil, err
		}

		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[showID] = entry{show: show, loadedAt: r.now()}
			r.mu.Unlock()
		}

		return show, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Show), nil
}

func (r *Registry) cached(showID int) (*domain.Show, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.cache[showID]
	if !ok || r.now().Sub(e.loadedAt) >= r.ttl {
		return nil, false
	}

	return e.show, true
}

func (r *Registry) PriceOf(ctx context.Context, showID int, seat int) (decimal.Decimal, error) {
	show, err := r.GetLayout(ctx, showID)
	if err != nil {
		return decimal.Zero, err
	}

	return show.Layout.PriceOf(seat)
}

// Invalidate drops the cached layout so the next lookup reads the catalog.
func (r *Registry) Invalidate(showID int) {
	r.mu.Lock()
	delete(r.cache, showID)
	r.mu.Unlock()

	r.group.Forget(strconv.Itoa(showID))
}
