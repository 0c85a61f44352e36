package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListSlots returns the slots owned by trainerEmail.
func (c *Client) ListSlots(ctx context.Context, trainerEmail string) ([]Slot, error) {
	var out []Slot
	path := "/all-slots?" + url.Values{"email": {trainerEmail}}.Encode()
	err := c.do(ctx, "list slots", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) DeleteSlot(ctx context.Context, id string) error {
	return c.do(ctx, "delete slot", http.MethodDelete, "/slots/"+escape(id), nil, nil)
}

func (c *Client) AddTrainerSlots(ctx context.Context, trainerEmail string, req SlotRequest) error {
	return c.do(ctx, "add trainer slots", http.MethodPost, "/trainer-slots/"+escape(trainerEmail), req, nil)
}
