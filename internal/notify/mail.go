// Package notify mails booking receipts and trainer application decisions
// through Resend.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"

	"github.com/resend/resend-go/v2"

	"github.com/jw6ventures/fitverse/internal/api"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h1>Your Fitverse booking is confirmed</h1>
<p>Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},</p>
<p>Thanks for booking {{if .TrainerName}}{{.TrainerName}}{{else}}your trainer{{end}} on {{.SelectedDay}} at {{.SelectedTime}}.</p>
<table>
<tr><td>Package</td><td>{{.PackageName}}</td></tr>
<tr><td>Amount</td><td>${{printf "%.2f" .Amount}}</td></tr>
<tr><td>Transaction</td><td>{{.TransactionID}}</td></tr>
</table>
<p>Your trainer will contact you within 24 hours.</p>`))

var decisionTmpl = template.Must(template.New("decision").Parse(`<h1>Your trainer application</h1>
{{if eq .Status "approved"}}<p>Congratulations, your application was approved. You can now manage your slots from the dashboard.</p>
{{else}}<p>Your application was not approved this time.</p>{{if .Feedback}}<p>Feedback from the team:</p><blockquote>{{.Feedback}}</blockquote>{{end}}
{{end}}`))

// Mailer sends transactional mail.
type Mailer struct {
	client *resend.Client
	from   string
}

// NewMailer returns a mailer for apiKey, or nil when apiKey is empty so
// callers can treat mail as optional.
func NewMailer(apiKey, from string) *Mailer {
	if apiKey == "" {
		return nil
	}
	return &Mailer{client: resend.NewClient(apiKey), from: from}
}

// WithBaseURL points the mailer at a different Resend endpoint.
func (m *Mailer) WithBaseURL(u *url.URL) *Mailer {
	m.client.BaseURL = u
	return m
}

// SendReceipt mails the booking confirmation for a recorded payment.
func (m *Mailer) SendReceipt(ctx context.Context, p api.Payment) error {
	var body bytes.Buffer
	if err := receiptTmpl.Execute(&body, p); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return m.send(ctx, p.UserEmail, "Your Fitverse booking receipt", body.String())
}

// SendTrainerDecision tells an applicant whether their application was
// approved.
func (m *Mailer) SendTrainerDecision(ctx context.Context, fb api.Feedback) error {
	var body bytes.Buffer
	if err := decisionTmpl.Execute(&body, fb); err != nil {
		return fmt.Errorf("render decision: %w", err)
	}
	return m.send(ctx, fb.Email, "Your Fitverse trainer application", body.String())
}

func (m *Mailer) send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("send %q: no recipient", subject)
	}
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		slog.Error("mail_event", "event", "send_failed", "subject", subject, "error", err)
		return fmt.Errorf("resend send failed: %w", err)
	}
	slog.Info("mail_event", "event", "sent", "message_id", sent.Id, "subject", subject)
	return nil
}
