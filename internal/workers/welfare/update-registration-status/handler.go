// internal/workers/welfare/update-registration-status/handler.go
package updateregistrationstatus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
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
	TaskType = "welfare-update-registration-status"
)

// Handler changes a registration's lifecycle status. ACTIVE and SUSPENDED
// both require the registration fee to be settled first. After a successful
// change the fund statistics are recomputed, since the active-member count
// feeds the operational flag and the fund total.
type Handler struct {
	config   *Config
	db       *sql.DB
	verifier *auth.Verifier
	audit    *welfare.AuditRecorder
	stats    *welfare.StatsAggregator
	errs     *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, verifier *auth.Verifier, audit *welfare.AuditRecorder, stats *welfare.StatsAggregator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		db:       db,
		verifier: verifier,
		audit:    audit,
		stats:    stats,
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
	if input.RegistrationID == "" {
		return nil, errors.NewValidationFailedError("registrationId is required")
	}

	newStatus := models.RegistrationStatus(input.NewStatus)
	if !newStatus.Valid() {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("unknown registration status: %s", input.NewStatus))
	}

	reg, err := welfare.GetRegistration(ctx, h.db, input.RegistrationID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("registration", input.RegistrationID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load registration", err)
	}
	if !reg.CanTransitionTo(newStatus) {
		return nil, errors.NewInvalidStateError("registration", input.RegistrationID, string(reg.Status), fmt.Sprintf("set to %s", newStatus))
	}

	now := time.Now().UTC()
	res, err := h.db.ExecContext(ctx, `
		UPDATE welfare_registrations
		SET status = $2,
		    activated_at = CASE WHEN $2 = 'ACTIVE' THEN COALESCE(activated_at, $3) ELSE activated_at END
		WHERE id = $1 AND status = $4`,
		input.RegistrationID, string(newStatus), now, string(reg.Status),
	)
	if err != nil {
		return nil, errors.NewStorageFailureError("update registration status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewStorageFailureError("update registration status", err)
	}
	if affected == 0 {
		// A concurrent change won between the read and the write.
		return nil, errors.NewInvalidStateError("registration", input.RegistrationID, string(reg.Status), fmt.Sprintf("set to %s", newStatus))
	}

	h.audit.Record(ctx, input.CallerID, "registration_status_changed", "registration", input.RegistrationID, map[string]interface{}{
		"from": string(reg.Status),
		"to":   string(newStatus),
	})

	output := &Output{
		RegistrationID: input.RegistrationID,
		Status:         string(newStatus),
	}

	// The status change is committed; stats are derived state and the next
	// recompute heals any miss, so a failure here is logged, not escalated.
	snap, err := h.stats.Recompute(ctx)
	if err != nil {
		h.logger.Warn("stats recompute after status change failed", map[string]interface{}{
			"registrationId": input.RegistrationID,
			"error":          err,
		})
	} else {
		output.ActiveMembers = snap.ActiveMembers
		output.IsOperational = snap.IsOperational
	}

	h.logger.Info("registration status updated", map[string]interface{}{
		"registrationId": input.RegistrationID,
		"from":           string(reg.Status),
		"to":             string(newStatus),
		"callerId":       input.CallerID,
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
