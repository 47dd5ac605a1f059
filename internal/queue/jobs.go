package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jmcallister/fleetreport/internal/export"
)

const (
	// ExportReportTask is scheduled when a caller asks for an async export.
	ExportReportTask = "report:export"
)

// ExportPayload carries a fully prepared export request to the worker.
type ExportPayload struct {
	Request export.Request `json:"request"`
}

// EnqueueExport enqueues a report export job.
func EnqueueExport(ctx context.Context, client *asynq.Client, req export.Request) error {
	data, err := json.Marshal(ExportPayload{Request: req})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ExportReportTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue export task: %w", err)
	}
	return nil
}
