package markreimbursementpaid

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	stderrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/welfare"
)

func newTestHandler(t *testing.T, db *sql.DB) *Handler {
	log := logger.NewTestLogger(t)
	audit := welfare.NewAuditRecorder(db, nil, "welfare-audit", log)
	return NewHandler(&Config{Timeout: 5 * time.Second}, db, nil, audit, log)
}

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE welfare_reimbursements`).
		WithArgs("reimb-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ReimbursementID: "reimb-1",
		AmountPaid:      decimal.RequireFromString("333.33"),
		CallerID:        "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "PAID", output.Status)
	assert.Equal(t, "333.33", output.AmountPaid)
	assert.NotEmpty(t, output.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_OverpaymentAccepted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	// The paid amount is recorded as given even when it differs from the due
	// amount.
	mock.ExpectExec(`UPDATE welfare_reimbursements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ReimbursementID: "reimb-1",
		AmountPaid:      decimal.RequireFromString("400.00"),
		CallerID:        "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "400", output.AmountPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidAmount(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	handler := newTestHandler(t, db)

	for _, amount := range []string{"0", "-5.00"} {
		output, err := handler.Execute(context.Background(), &Input{
			ReimbursementID: "reimb-1",
			AmountPaid:      decimal.RequireFromString(amount),
			CallerID:        "admin-1",
		})
		assert.Nil(t, output)
		assert.Equal(t, stderrors.ErrCodeValidationFailed, stderrors.CodeOf(err))
	}
}

func TestHandler_Execute_SecondPaymentLoses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE welfare_reimbursements`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	paidAt := time.Now()
	mock.ExpectQuery(`SELECT id, user_id, application_id, amount_due, amount_paid`).
		WithArgs("reimb-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "application_id", "amount_due", "amount_paid",
			"due_date", "status", "paid_at", "created_at",
		}).AddRow(
			"reimb-1", "user-1", "app-1", "333.33", "333.33",
			time.Now(), "PAID", paidAt, time.Now(),
		))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ReimbursementID: "reimb-1",
		AmountPaid:      decimal.RequireFromString("333.33"),
		CallerID:        "admin-2",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeInvalidState, stderrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE welfare_reimbursements`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, application_id, amount_due, amount_paid`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ReimbursementID: "missing",
		AmountPaid:      decimal.RequireFromString("10.00"),
		CallerID:        "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNotFound, stderrors.CodeOf(err))
}
