// internal/workers/welfare/mark-reimbursement-paid/handler.go
package markreimbursementpaid

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"

	"welfare-workers/internal/common/auth"
	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
	"welfare-workers/internal/welfare"
)

const (
	TaskType = "welfare-mark-reimbursement-paid"
)

// Handler records a member's payment of their reimbursement share. The paid
// amount may differ from the amount due (partial or overpayment is an
// operator judgment call); what the state machine guarantees is that the
// PENDING -> PAID transition happens at most once per row.
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
	if input.ReimbursementID == "" {
		return nil, errors.NewValidationFailedError("reimbursementId is required")
	}
	if input.AmountPaid.LessThanOrEqual(decimal.Zero) {
		return nil, errors.NewValidationFailedError("amountPaid must be positive")
	}

	now := time.Now().UTC()
	res, err := h.db.ExecContext(ctx, `
		UPDATE welfare_reimbursements
		SET status = 'PAID', amount_paid = $2, paid_at = $3
		WHERE id = $1 AND status = 'PENDING'`,
		input.ReimbursementID, input.AmountPaid, now,
	)
	if err != nil {
		return nil, errors.NewStorageFailureError("mark reimbursement paid", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewStorageFailureError("mark reimbursement paid", err)
	}
	if affected == 0 {
		r, loadErr := welfare.GetReimbursement(ctx, h.db, input.ReimbursementID)
		if loadErr == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("reimbursement", input.ReimbursementID)
		}
		if loadErr != nil {
			return nil, errors.NewStorageFailureError("load reimbursement", loadErr)
		}
		return nil, errors.NewInvalidStateError("reimbursement", input.ReimbursementID, string(r.Status), "marked paid")
	}

	h.audit.Record(ctx, input.CallerID, "reimbursement_paid", "reimbursement", input.ReimbursementID, map[string]interface{}{
		"amountPaid": input.AmountPaid.String(),
	})

	h.logger.Info("reimbursement marked paid", map[string]interface{}{
		"reimbursementId": input.ReimbursementID,
		"amountPaid":      input.AmountPaid.String(),
		"callerId":        input.CallerID,
	})

	return &Output{
		ReimbursementID: input.ReimbursementID,
		Status:          string(models.ReimbursementPaid),
		AmountPaid:      input.AmountPaid.String(),
		PaidAt:          now.Format(time.RFC3339),
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
