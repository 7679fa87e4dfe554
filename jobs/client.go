package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Enqueuer pushes tasks onto the Redis-backed queue from the web process.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(redisAddr string) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueLowStock queues a sold-out notification.
func (e *Enqueuer) EnqueueLowStock(ctx context.Context, productID int64, name string) error {
	task, err := NewLowStockTask(LowStockPayload{ProductID: productID, Name: name})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases the underlying client.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
