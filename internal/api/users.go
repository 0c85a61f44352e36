package api

import (
	"context"
	"net/http"
)

func (c *Client) GetUser(ctx context.Context, email string) (*User, error) {
	var out User
	if err := c.do(ctx, "get user", http.MethodGet, "/users/"+escape(email), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser registers a profile. The backend answers 409 when the email
// already has one.
func (c *Client) CreateUser(ctx context.Context, user User) error {
	return c.do(ctx, "create user", http.MethodPost, "/users", user, nil)
}

func (c *Client) UpdateUser(ctx context.Context, email string, update ProfileUpdate) error {
	return c.do(ctx, "update user", http.MethodPatch, "/users/"+escape(email), update, nil)
}
