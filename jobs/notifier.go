package jobs

import (
	"context"
	"fmt"

	"github.com/decagraff/lc-service/internal/quotations"
)

// StatusNotifier queues a client email whenever a quotation changes status.
type StatusNotifier struct {
	client *Client
}

// NewStatusNotifier builds the notifier over an asynq client.
func NewStatusNotifier(client *Client) *StatusNotifier {
	return &StatusNotifier{client: client}
}

var statusSubjects = map[quotations.Estado]string{
	quotations.EstadoEnviada:   "Cotización %s enviada",
	quotations.EstadoAprobada:  "Cotización %s aprobada",
	quotations.EstadoRechazada: "Cotización %s rechazada",
	quotations.EstadoVencida:   "Cotización %s vencida",
}

// QuotationStatusChanged implements quotations.Notifier.
func (n *StatusNotifier) QuotationStatusChanged(ctx context.Context, q *quotations.Quotation) error {
	if n == nil || n.client == nil || q.Cliente.Email == "" {
		return nil
	}
	subject, ok := statusSubjects[q.Estado]
	if !ok {
		return nil
	}
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      q.Cliente.Email,
		Subject: fmt.Sprintf(subject, q.Numero),
		Body: fmt.Sprintf(
			"Hola %s,\n\nSu cotización %s ahora está en estado %s.\nTotal: S/ %.2f\n\nGracias por su preferencia.",
			q.Cliente.Nombre, q.Numero, q.Estado, q.Total),
	})
	return err
}
