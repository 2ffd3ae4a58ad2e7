package mocks

import (
	"context"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type MockShowRepo struct {
	GetByIDFunc func(ctx context.Context, id int) (*domain.Show, error)
}

func (m *MockShowRepo) GetByID(ctx context.Context, id int) (*domain.Show, error) {
	return m.GetByIDFunc(ctx, id)
}
