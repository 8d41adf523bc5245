// internal/workers/welfare/recompute-fund-stats/handler.go
package recomputefundstats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"welfare-workers/internal/common/auth"
	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/welfare"
)

const (
	TaskType = "welfare-recompute-fund-stats"
)

// Handler exposes the statistics recompute as its own task so the process
// model can trigger it on a timer or after bulk imports, independent of the
// registration worker's implicit recompute.
type Handler struct {
	config *Config
	stats  *welfare.StatsAggregator
	errs   *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, stats *welfare.StatsAggregator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		stats:  stats,
		errs:   errors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, errors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := auth.RequireCaller(input.CallerID); err != nil {
		return nil, err
	}

	snap, err := h.stats.Recompute(ctx)
	if err != nil {
		return nil, err
	}

	output := &Output{
		TotalMembers:  snap.TotalMembers,
		ActiveMembers: snap.ActiveMembers,
		TotalAmount:   snap.TotalAmount.String(),
		IsOperational: snap.IsOperational,
	}
	if snap.LaunchDate != nil {
		output.LaunchDate = snap.LaunchDate.Format(time.RFC3339)
	}
	if snap.WaitingPeriodEnd != nil {
		output.WaitingPeriodEnd = snap.WaitingPeriodEnd.Format(time.RFC3339)
	}

	h.logger.Info("fund stats recomputed", map[string]interface{}{
		"activeMembers": snap.ActiveMembers,
		"isOperational": snap.IsOperational,
		"callerId":      input.CallerID,
	})

	return output, nil
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errs.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
