package api

import (
	"context"
	"net/http"
)

func (c *Client) ListTrainers(ctx context.Context) ([]Trainer, error) {
	var out []Trainer
	err := c.do(ctx, "list trainers", http.MethodGet, "/trainers", nil, &out)
	return out, err
}

func (c *Client) GetTrainer(ctx context.Context, id string) (*Trainer, error) {
	var out Trainer
	if err := c.do(ctx, "get trainer", http.MethodGet, "/trainers/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyTrainer submits a trainer application. The backend keeps it pending
// until an admin decides on it.
func (c *Client) ApplyTrainer(ctx context.Context, application Trainer) error {
	application.Status = "pending"
	return c.do(ctx, "apply trainer", http.MethodPost, "/trainers", application, nil)
}

// UpdateTrainerStatus moves an application, e.g. to "active" on approval.
func (c *Client) UpdateTrainerStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, "update trainer status", http.MethodPatch, "/trainers/"+escape(id), body, nil)
}

// DeleteTrainer demotes a trainer back to a member.
func (c *Client) DeleteTrainer(ctx context.Context, id string) error {
	return c.do(ctx, "delete trainer", http.MethodDelete, "/trainers/"+escape(id), nil, nil)
}

func (c *Client) ListPendingTrainers(ctx context.Context) ([]Trainer, error) {
	var out []Trainer
	err := c.do(ctx, "list pending trainers", http.MethodGet, "/pending-trainers", nil, &out)
	return out, err
}

func (c *Client) RejectTrainer(ctx context.Context, id, feedback string) error {
	body := map[string]string{"feedback": feedback}
	return c.do(ctx, "reject trainer", http.MethodPatch, "/trainers/"+escape(id)+"/reject", body, nil)
}

// TrainerFeedback returns the decision recorded for an application by email.
func (c *Client) TrainerFeedback(ctx context.Context, email string) (*Feedback, error) {
	var out Feedback
	if err := c.do(ctx, "trainer feedback", http.MethodGet, "/feedback/"+escape(email), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListApplications returns every trainer application filed by email.
func (c *Client) ListApplications(ctx context.Context, email string) ([]Trainer, error) {
	var out []Trainer
	err := c.do(ctx, "list applications", http.MethodGet, "/trainer-applications/"+escape(email), nil, &out)
	return out, err
}
