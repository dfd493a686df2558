// Package queue defines the asynq task types shared by the API and worker.
package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// OverdueSweepTask walks the open loans and records a notice for each one
// past its due date. Scheduled periodically; it carries no payload.
const OverdueSweepTask = "circulation:overdue_sweep"

// EnqueueOverdueSweep enqueues an immediate sweep.
func EnqueueOverdueSweep(ctx context.Context, client *asynq.Client) error {
	task := asynq.NewTask(OverdueSweepTask, nil)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue overdue sweep: %w", err)
	}
	return nil
}
