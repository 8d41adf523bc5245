// internal/workers/welfare/mark-application-paid/handler.go
package markapplicationpaid

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
	TaskType = "welfare-mark-application-paid"
)

// Handler records the payout of an approved claim and allocates the member
// reimbursements in the same database transaction. If allocation is
// impossible (no active members) the whole transaction rolls back and the
// application stays APPROVED, so the payout can be retried once membership
// recovers.
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

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageFailureError("begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	due := now.AddDate(0, 0, h.config.ReimbursementWindowDays)

	res, err := tx.ExecContext(ctx, `
		UPDATE welfare_applications
		SET status = 'PAID', payout_date = $2, reimbursement_due = $3
		WHERE id = $1 AND status = 'APPROVED'`,
		input.ApplicationID, now, due,
	)
	if err != nil {
		return nil, errors.NewStorageFailureError("mark application paid", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewStorageFailureError("mark application paid", err)
	}
	if affected == 0 {
		app, loadErr := welfare.GetApplication(ctx, tx, input.ApplicationID)
		if loadErr == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("application", input.ApplicationID)
		}
		if loadErr != nil {
			return nil, errors.NewStorageFailureError("load application", loadErr)
		}
		return nil, errors.NewInvalidStateError("application", input.ApplicationID, string(app.Status), "marked paid")
	}

	// Reload inside the transaction so the allocator sees the due date the
	// CAS update just wrote.
	app, err := welfare.GetApplication(ctx, tx, input.ApplicationID)
	if err != nil {
		return nil, errors.NewStorageFailureError("load application", err)
	}

	created, err := welfare.Allocate(ctx, tx, app)
	if err != nil {
		// NO_ACTIVE_MEMBERS (and any storage error) rolls the payout back;
		// the application stays APPROVED.
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageFailureError("commit transaction", err)
	}

	metrics.ReimbursementsAllocated.WithLabelValues("automatic").Add(float64(created))

	h.audit.Record(ctx, input.CallerID, "application_paid", "application", input.ApplicationID, map[string]interface{}{
		"reimbursementsCreated": created,
		"claimAmount":           app.ClaimAmount.String(),
	})

	h.logger.Info("application paid and reimbursements allocated", map[string]interface{}{
		"applicationId":         input.ApplicationID,
		"reimbursementsCreated": created,
		"callerId":              input.CallerID,
	})

	return &Output{
		ApplicationID:         input.ApplicationID,
		Status:                string(models.ApplicationPaid),
		PayoutDate:            now.Format(time.RFC3339),
		ReimbursementDue:      due.Format(time.RFC3339),
		ReimbursementsCreated: created,
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
