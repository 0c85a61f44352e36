package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func stripeStub(t *testing.T, status int, body string) (*StripeProcessor, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		seen = append(seen, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeProcessor("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}), &seen
}

func TestIntentID(t *testing.T) {
	assert.Equal(t, "pi_3Nx", IntentID("pi_3Nx_secret_abc"))
	assert.Equal(t, "pi_plain", IntentID("pi_plain"))
}

func TestStripeConfirmSucceeded(t *testing.T) {
	p, seen := stripeStub(t, http.StatusOK, `{"id":"pi_3Nx","object":"payment_intent","status":"succeeded"}`)

	tx, err := p.Confirm(context.Background(), "pi_3Nx_secret_abc", "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, "pi_3Nx", tx)

	require.Len(t, *seen, 1)
	r := (*seen)[0]
	assert.Equal(t, "/v1/payment_intents/pi_3Nx/confirm", r.URL.Path)
	assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
}

func TestStripeConfirmCardDeclined(t *testing.T) {
	p, _ := stripeStub(t, http.StatusPaymentRequired, `{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds."}}`)

	_, err := p.Confirm(context.Background(), "pi_3Nx_secret_abc", "pm_card_visa")
	require.ErrorIs(t, err, ErrPaymentDeclined)
	var decline *DeclineError
	require.ErrorAs(t, err, &decline)
	assert.Equal(t, "Your card has insufficient funds.", decline.Reason)
	assert.Equal(t, "insufficient_funds", decline.Code)
}

func TestStripeConfirmRequiresAction(t *testing.T) {
	p, _ := stripeStub(t, http.StatusOK, `{"id":"pi_3Nx","object":"payment_intent","status":"requires_action"}`)

	_, err := p.Confirm(context.Background(), "pi_3Nx_secret_abc", "pm_card_threeDSecure2Required")
	assert.ErrorIs(t, err, ErrPaymentDeclined)
}

func TestStripeConfirmAPIErrorIsNotDecline(t *testing.T) {
	p, _ := stripeStub(t, http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"No such payment_intent"}}`)

	_, err := p.Confirm(context.Background(), "pi_missing_secret_x", "pm_card_visa")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentDeclined)
}
