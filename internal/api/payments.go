package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.do(ctx, "create payment intent", http.MethodPost, "/create-payment-intent", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordPayment persists the booking for a captured charge.
func (c *Client) RecordPayment(ctx context.Context, payment Payment) error {
	return c.do(ctx, "record payment", http.MethodPost, "/payments", payment, nil)
}

// ListBookedTrainers returns the bookings made by email.
func (c *Client) ListBookedTrainers(ctx context.Context, email string) ([]Payment, error) {
	var out []Payment
	path := "/booked-trainers?" + url.Values{"email": {email}}.Encode()
	err := c.do(ctx, "list booked trainers", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.do(ctx, "dashboard stats", http.MethodGet, "/admin/dashboard-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
