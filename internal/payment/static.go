package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const DeclinedTokenPrefix = "declined"

// StaticVerifier approves every non-empty token except those starting with
// DeclinedTokenPrefix. Meant for local development and tests.
type StaticVerifier struct{}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{}
}

func (StaticVerifier) Verify(_ context.Context, token string, amount decimal.Decimal) (string, error) {
	if token == "" || strings.HasPrefix(token, DeclinedTokenPrefix) {
		return "", fmt.Errorf("%w: token %q was declined", domain.ErrPaymentFailed, token)
	}

	return fmt.Sprintf("static_%s_%s", token, amount.StringFixed(2)), nil
}
