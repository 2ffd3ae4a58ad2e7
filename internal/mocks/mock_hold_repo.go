package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockHoldRepo struct {
	mock.Mock
	domain.HoldRepository
}

func (m *MockHoldRepo) Create(ctx context.Context, hold *domain.Hold) error {
	args := m.Called(ctx, hold)
	return args.Error(0)
}

func (m *MockHoldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockHoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hold), args.Error(1)
}

func (m *MockHoldRepo) UpdateState(ctx context.Context, id uuid.UUID, from, to domain.HoldState) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockHoldRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hold), args.Error(1)
}
