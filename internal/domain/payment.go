package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentVerifier asks the payment collaborator whether a confirmation token
// settles the given amount. A declined payment is reported as
// ErrPaymentFailed; any other error means the collaborator could not answer.
type PaymentVerifier interface {
	Verify(ctx context.Context, token string, amount decimal.Decimal) (ref string, err error)
}
