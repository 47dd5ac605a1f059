package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/export"
	"github.com/jmcallister/fleetreport/internal/queue"
	"github.com/jmcallister/fleetreport/internal/repository"
	"github.com/jmcallister/fleetreport/internal/template"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	coordinator *export.Coordinator
	log         *zap.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(coordinator *export.Coordinator, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{coordinator: coordinator, log: log}
}

// Handler registers the export job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExportReportTask, p.handleExport)
	return mux
}

func (p *Processor) handleExport(ctx context.Context, task *asynq.Task) error {
	var payload queue.ExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	reportID := string(payload.Request.ReportID)

	result, err := p.coordinator.Generate(ctx, payload.Request)
	if err != nil {
		p.log.Error("export failed", zap.String("report_id", reportID), zap.Error(err))
		// Retrying cannot fix a missing row or a broken template reference.
		var cfgErr *template.ConfigError
		if errors.Is(err, repository.ErrNotFound) || errors.As(err, &cfgErr) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if result.Warning != "" {
		p.log.Warn("export completed with warning",
			zap.String("report_id", reportID), zap.String("warning", result.Warning))
		return nil
	}
	p.log.Info("export completed",
		zap.String("report_id", reportID), zap.String("file_id", result.FileID))
	return nil
}
