package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendEmailHandlerDelivers(t *testing.T) {
	mailer := &fakeMailer{}
	handler := NewSendEmailHandler(mailer, discardLogger())

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "cliente@example.pe",
		Subject: "Cotización COT-2025-0001 aprobada",
		Body:    "Hola",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, "cliente@example.pe", mailer.to)
	assert.Equal(t, "Cotización COT-2025-0001 aprobada", mailer.subject)
}

func TestSendEmailHandlerPropagatesMailerError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	handler := NewSendEmailHandler(mailer, discardLogger())

	task, err := NewSendEmailTask(SendEmailPayload{To: "cliente@example.pe"})
	require.NoError(t, err)

	require.Error(t, handler(context.Background(), task))
}

func TestSendEmailHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewSendEmailHandler(&fakeMailer{}, discardLogger())

	err := handler(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendEmailHandlerNoMailerConfigured(t *testing.T) {
	handler := NewSendEmailHandler(nil, discardLogger())

	task, err := NewSendEmailTask(SendEmailPayload{To: "cliente@example.pe"})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
}

func TestExpireSweepTaskHasNoPayload(t *testing.T) {
	task := NewExpireSweepTask()
	assert.Equal(t, TaskTypeExpireSweep, task.Type())
	assert.Empty(t, task.Payload())
}
