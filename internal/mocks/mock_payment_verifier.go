package mocks

import (
	"context"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPaymentVerifier struct {
	mock.Mock
	domain.PaymentVerifier
}

func (m *MockPaymentVerifier) Verify(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, token, amount)
	return args.String(0), args.Error(1)
}
