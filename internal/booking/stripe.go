package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProcessor confirms payment intents through the Stripe API.
type StripeProcessor struct {
	sc *client.API
}

// NewStripeProcessor builds a processor for secretKey. backends may be nil
// to use the Stripe defaults.
func NewStripeProcessor(secretKey string, backends *stripe.Backends) *StripeProcessor {
	return &StripeProcessor{sc: client.New(secretKey, backends)}
}

// IntentID extracts the payment intent id from its client secret
// ("pi_123_secret_abc" yields "pi_123").
func IntentID(clientSecret string) string {
	if i := strings.Index(clientSecret, "_secret_"); i > 0 {
		return clientSecret[:i]
	}
	return clientSecret
}

func (p *StripeProcessor) Confirm(ctx context.Context, clientSecret, paymentMethod string) (string, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	pi, err := p.sc.PaymentIntents.Confirm(IntentID(clientSecret), params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return "", &DeclineError{Reason: se.Msg, Code: string(se.DeclineCode)}
		}
		return "", fmt.Errorf("confirm payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return "", &DeclineError{Reason: fmt.Sprintf("payment %s", pi.Status), Code: string(pi.Status)}
	}
	return pi.ID, nil
}
