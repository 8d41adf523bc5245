package reallocatereimbursements

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
	return NewHandler(&Config{Timeout: 5 * time.Second}, db, nil, audit, log)
}

func expectApplication(mock sqlmock.Sqlmock, status string) {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "deceased_name", "application_type", "claim_amount",
		"status", "approved_at", "rejected_at", "rejection_reason",
		"payout_date", "reimbursement_due", "created_at",
	}).AddRow(
		"app-1", "user-claimant", "Jane Doe", "death_claim", "900.00",
		status, time.Now(), nil, nil,
		time.Now(), time.Now().AddDate(0, 0, 14), time.Now(),
	)
	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("app-1").
		WillReturnRows(rows)
}

func TestHandler_Execute_CatchesUpNewMembers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectApplication(mock, "PAID")
	mock.ExpectQuery(`SELECT id, user_id FROM welfare_registrations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
			AddRow("reg-1", "user-1").
			AddRow("reg-2", "user-2").
			AddRow("reg-3", "user-3"))
	mock.ExpectQuery(`SELECT user_id FROM welfare_reimbursements`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).
			AddRow("user-1").
			AddRow("user-2"))
	mock.ExpectExec(`INSERT INTO welfare_reimbursements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, output.ReimbursementsCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AlreadyAllocated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectApplication(mock, "PAID")
	mock.ExpectQuery(`SELECT id, user_id FROM welfare_registrations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
			AddRow("reg-1", "user-1").
			AddRow("reg-2", "user-2"))
	mock.ExpectQuery(`SELECT user_id FROM welfare_reimbursements`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).
			AddRow("user-1").
			AddRow("user-2"))

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		CallerID:      "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeAlreadyAllocated, stderrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NotPaidYet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	expectApplication(mock, "APPROVED")

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

	mock.ExpectQuery(`SELECT id, user_id, deceased_name`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID: "missing",
		CallerID:      "admin-1",
	})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeNotFound, stderrors.CodeOf(err))
}

func TestHandler_Execute_MissingCaller(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	handler := newTestHandler(t, db)
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-1"})

	assert.Nil(t, output)
	assert.Equal(t, stderrors.ErrCodeUnauthorized, stderrors.CodeOf(err))
}
