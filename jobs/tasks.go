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
	// TaskTypeLowStockAlert fires when a sale drains a product to zero.
	TaskTypeLowStockAlert = "stock:low_alert"
	// TaskTypeInvoiceSweep prunes old invoice PDFs from disk.
	TaskTypeInvoiceSweep = "invoice:sweep"
)

// LowStockPayload identifies the product that sold out.
type LowStockPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
}

// NewLowStockTask constructs an Asynq task.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockAlert, data), nil
}

// HandleLowStockTask processes TaskTypeLowStockAlert tasks.
func HandleLowStockTask(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: wire to SMTP or chat notifications later.
	slog.Default().Info("product sold out",
		slog.Int64("product_id", payload.ProductID),
		slog.String("name", payload.Name))
	return nil
}

// NewInvoiceSweepTask constructs the scheduled sweep task.
func NewInvoiceSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeInvoiceSweep, nil)
}
