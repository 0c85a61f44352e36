package api

import (
	"context"
	"net/http"
)

func (c *Client) ListClasses(ctx context.Context) ([]Class, error) {
	var out []Class
	err := c.do(ctx, "list classes", http.MethodGet, "/classes", nil, &out)
	return out, err
}

func (c *Client) GetClass(ctx context.Context, id string) (*Class, error) {
	var out Class
	if err := c.do(ctx, "get class", http.MethodGet, "/classes/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClass(ctx context.Context, class Class) error {
	return c.do(ctx, "create class", http.MethodPost, "/classes", class, nil)
}

func (c *Client) ListReviews(ctx context.Context) ([]Review, error) {
	var out []Review
	err := c.do(ctx, "list reviews", http.MethodGet, "/reviews", nil, &out)
	return out, err
}

func (c *Client) CreateReview(ctx context.Context, review Review) error {
	return c.do(ctx, "create review", http.MethodPost, "/reviews", review, nil)
}

func (c *Client) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	var out []Subscriber
	err := c.do(ctx, "list subscribers", http.MethodGet, "/newsletter/subscribers", nil, &out)
	return out, err
}

func (c *Client) Subscribe(ctx context.Context, name, email string) error {
	body := Subscriber{Name: name, Email: email}
	return c.do(ctx, "subscribe newsletter", http.MethodPost, "/newsletter/subscribe", body, nil)
}
