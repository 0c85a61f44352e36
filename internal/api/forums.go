package api

import (
	"context"
	"net/http"
)

func (c *Client) ListForums(ctx context.Context) ([]Forum, error) {
	var out []Forum
	err := c.do(ctx, "list forums", http.MethodGet, "/forums", nil, &out)
	return out, err
}

func (c *Client) GetForum(ctx context.Context, id string) (*Forum, error) {
	var out Forum
	if err := c.do(ctx, "get forum", http.MethodGet, "/forums/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateForum(ctx context.Context, forum Forum) error {
	return c.do(ctx, "create forum", http.MethodPost, "/forums", forum, nil)
}

type voteRequest struct {
	UserID   string        `json:"userId"`
	VoteType VoteDirection `json:"voteType"`
}

// Vote records voterID's vote on a forum post. The backend replaces any
// earlier vote by the same voter.
func (c *Client) Vote(ctx context.Context, forumID, voterID string, direction VoteDirection) error {
	body := voteRequest{UserID: voterID, VoteType: direction}
	return c.do(ctx, "vote forum", http.MethodPost, "/forums/"+escape(forumID)+"/vote", body, nil)
}
