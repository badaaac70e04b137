package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer delivers notification emails. Implementations must tolerate large
// recipient lists.
type Mailer interface {
	Send(ctx context.Context, to []string, subject string, html string) error
}

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey string, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// resendBatchSize is the maximum number of emails per Resend batch call.
const resendBatchSize = 100

func (m *ResendMailer) Send(ctx context.Context, to []string, subject string, html string) error {
	if len(to) == 0 {
		return nil
	}

	if len(to) == 1 {
		sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
			From:    m.from,
			To:      to,
			Subject: subject,
			Html:    html,
		})
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		slog.Info("email sent", "message_id", sent.Id, "subject", subject)
		return nil
	}

	// One request per recipient so addresses are never leaked across members,
	// chunked to respect the batch API limit.
	for start := 0; start < len(to); start += resendBatchSize {
		end := start + resendBatchSize
		if end > len(to) {
			end = len(to)
		}

		batch := make([]*resend.SendEmailRequest, 0, end-start)
		for _, addr := range to[start:end] {
			batch = append(batch, &resend.SendEmailRequest{
				From:    m.from,
				To:      []string{addr},
				Subject: subject,
				Html:    html,
			})
		}

		if _, err := m.client.Batch.SendWithContext(ctx, batch); err != nil {
			return fmt.Errorf("send email batch: %w", err)
		}
		slog.Info("email batch sent", "count", len(batch), "subject", subject)
	}

	return nil
}

// NoopMailer is used when no email provider is configured.
type NoopMailer struct{}

func (NoopMailer) Send(_ context.Context, to []string, subject string, _ string) error {
	slog.Debug("email delivery disabled", "recipients", len(to), "subject", subject)
	return nil
}
