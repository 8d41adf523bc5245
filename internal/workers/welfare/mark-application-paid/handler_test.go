package markapplicationpaid

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	stderrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/welfare"
)

func newTestHandler(t *testing.T, db *sql.DB) *Handler {
	log := logger.NewTestLogger(t)
	audit := welfare.NewAuditRecorder(db, nil, "welfare-audit", log)
	cfg := &Config{Timeout: 5 * time.Second, ReimbursementWindowDays: 14}
	return NewHandler(cfg, db, nil, audit, log)
}

func applicationRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "deceased_name", "application_type", "claim_amount",
		"status", "approved_at", "rejected_at", "rejection_reason",
		"payout_date", "reimbursement_due", "created_at",
	}).AddRow(
		"app-1", "user-claimant", "Jane Doe", "death_claim", "1000.00",
		status, time.Now(), nil, nil,
		time.Now(), time.Now().AddDate(0, 0, 14), time.Now(),
	)
}

func TestHandler_Execute_PaysAndAllocates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE welfare_applications`).
		WithArgs("app-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("PAID"))
	mock.ExpectQuery(`SELECT id, user_id FROM welfare_registrations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
			AddRow("reg-1", "user-1").
			AddRow("reg-2", "user-2").
			AddRow("reg-3", "user-3"))
	mock.ExpectQuery(`SELECT user_id FROM welfare_reimbursements`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectExec(`INSERT INTO welfare_reimbursements`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "PAID", output.Status)
	assert.Equal(t, 3, output.ReimbursementsCreated)
	assert.NotEmpty(t, output.PayoutDate)
	assert.NotEmpty(t, output.ReimbursementDue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RollsBackWhenNoActiveMembers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE welfare_applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("PAID"))
	mock.ExpectQuery(`SELECT id, user_id FROM welfare_registrations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectRollback()

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNoActiveMembers, stderrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NotApproved(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE welfare_applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("PENDING"))
	mock.ExpectRollback()

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
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

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE welfare_applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "missing",
		CallerID:      "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNotFound, stderrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SecondRunAlreadyAllocated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	// Retry after a crash between allocation and job completion: the CAS
	// succeeds only once, so a second run surfaces INVALID_STATE rather than
	// duplicating reimbursements.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE welfare_applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("PAID"))
	mock.ExpectRollback()

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeInvalidState, stderrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
