package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/decagraff/lc-service/internal/quotations"
)

// NewExpireSweepHandler returns the handler that persists vencida for every
// quotation whose fecha_vencimiento has passed. Reads already derive the
// status lazily; the sweep keeps the stored rows and the report aggregates
// honest.
func NewExpireSweepHandler(svc *quotations.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := svc.ExpireDue(ctx)
		if err != nil {
			logger.Error("expire sweep", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("expire sweep", slog.Int64("expired", n))
		}
		return nil
	}
}
