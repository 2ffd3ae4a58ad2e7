package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeVerifier treats the confirmation token as a Stripe PaymentIntent id
// and approves it when the intent has succeeded for exactly the held amount.
type StripeVerifier struct {
	currency  stripe.Currency
	getIntent func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewStripeVerifier expects stripe.Key to be set.
func NewStripeVerifier(currency string) *StripeVerifier {
	return &StripeVerifier{
		currency:  stripe.Currency(strings.ToLower(currency)),
		getIntent: paymentintent.Get,
	}
}

func (s *StripeVerifier) Verify(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	if !strings.HasPrefix(token, "pi_") {
		return "", fmt.Errorf("%w: %q is not a payment intent", domain.ErrPaymentFailed, token)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := s.getIntent(token, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: payment intent %s does not exist", domain.ErrPaymentFailed, token)
		}

		return "", err
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return "", fmt.Errorf("%w: payment intent %s is %s", domain.ErrPaymentFailed, intent.ID, intent.Status)
	}

	if s.currency != "" && intent.Currency != s.currency {
		return "", fmt.Errorf("%w: payment intent %s is in %s", domain.ErrPaymentFailed, intent.ID, intent.Currency)
	}

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	if intent.AmountReceived != amountCents {
		return "", fmt.Errorf(
			"%w: payment intent %s received %d, expected %d",
			domain.ErrPaymentFailed,
			intent.ID,
			intent.AmountReceived,
			amountCents)
	}

	return intent.ID, nil
}
