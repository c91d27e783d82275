package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeExpireSweep marks past-due quotations as vencida.
	TaskTypeExpireSweep = "quotation:expire_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewExpireSweepTask constructs the nightly expiration sweep task. No payload
// needed, the sweep always covers everything past due.
func NewExpireSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeExpireSweep, nil)
}

// Mailer delivers transactional email. The SMTP implementation lives in the
// worker wiring; tests inject fakes.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSendEmailHandler returns the handler processing TaskTypeSendEmail tasks.
func NewSendEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if mailer == nil {
			logger.Info("mail skipped, no mailer configured",
				slog.String("to", payload.To), slog.String("subject", payload.Subject))
			return nil
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Warn("send mail", slog.Any("error", err))
			return err
		}
		return nil
	}
}
