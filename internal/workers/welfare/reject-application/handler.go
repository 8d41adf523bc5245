// internal/workers/welfare/reject-application/handler.go
package rejectapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"welfare-workers/internal/common/auth"
	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
	"welfare-workers/internal/welfare"
)

const (
	TaskType = "welfare-reject-application"
)

// Handler moves a claim application from PENDING to REJECTED. A non-blank
// reason is mandatory; it is stored alongside the rejection timestamp so the
// applicant can be told why.
type Handler struct {
	config   *Config
	db       *sql.DB
	verifier *auth.Verifier
	audit    *welfare.AuditRecorder
	errs     *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, verifier *auth.Verifier, audit *welfare.AuditRecorder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		db:       db,
		verifier: verifier,
		audit:    audit,
		errs:     errors.NewErrorHandler(l),
		logger:   l,
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
	if err := h.verifier.VerifyCaller(ctx, input.CallerID, input.SessionToken); err != nil {
		return nil, err
	}
	if input.ApplicationID == "" {
		return nil, errors.NewValidationFailedError("applicationId is required")
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, errors.NewValidationFailedError("rejection reason must not be blank")
	}

	now := time.Now().UTC()
	res, err := h.db.ExecContext(ctx, `
		UPDATE welfare_applications
		SET status = 'REJECTED', rejected_at = $2, rejection_reason = $3
		WHERE id = $1 AND status = 'PENDING'`,
		input.ApplicationID, now, reason,
	)
	if err != nil {
		return nil, errors.NewStorageFailureError("reject application", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewStorageFailureError("reject application", err)
	}
	if affected == 0 {
		app, loadErr := welfare.GetApplication(ctx, h.db, input.ApplicationID)
		if loadErr == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("application", input.ApplicationID)
		}
		if loadErr != nil {
			return nil, errors.NewStorageFailureError("load application", loadErr)
		}
		return nil, errors.NewInvalidStateError("application", input.ApplicationID, string(app.Status), "rejected")
	}

	h.audit.Record(ctx, input.CallerID, "application_rejected", "application", input.ApplicationID, map[string]interface{}{
		"reason": reason,
	})

	h.logger.Info("application rejected", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"callerId":      input.CallerID,
	})

	return &Output{
		ApplicationID: input.ApplicationID,
		Status:        string(models.ApplicationRejected),
		RejectedAt:    now.Format(time.RFC3339),
	}, nil
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
