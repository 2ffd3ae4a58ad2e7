// Package events publishes seat-status and booking events to downstream
// consumers such as live seat maps and notification services.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []domain.EventPublisher

func (m Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func encode(event domain.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	return body, nil
}
