// internal/welfare/store.go
package welfare

import (
	"context"
	"database/sql"
	"fmt"

	"welfare-workers/internal/models"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so the allocation routine
// can run inside the mark-paid transaction or standalone for the
// administrative catch-up path.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ActiveMembers returns the current active, fully paid members ordered by
// user id. The snapshot is always queried fresh: member count determines the
// per-member share, so a cached view would mis-split.
func ActiveMembers(ctx context.Context, q Querier) ([]models.Member, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id FROM welfare_registrations
		WHERE status = 'ACTIVE' AND payment_status = 'PAID'
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query active members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.RegistrationID, &m.UserID); err != nil {
			return nil, fmt.Errorf("scan active member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active members: %w", err)
	}

	return members, nil
}

// GetApplication loads a single claim application.
func GetApplication(ctx context.Context, q Querier, applicationID string) (*models.Application, error) {
	var app models.Application
	var rejectionReason sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, deceased_name, application_type, claim_amount,
		       status, approved_at, rejected_at, rejection_reason,
		       payout_date, reimbursement_due, created_at
		FROM welfare_applications
		WHERE id = $1`, applicationID).Scan(
		&app.ID, &app.UserID, &app.DeceasedName, &app.ApplicationType,
		&app.ClaimAmount, &app.Status, &app.ApprovedAt, &app.RejectedAt,
		&rejectionReason, &app.PayoutDate, &app.ReimbursementDue, &app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.RejectionReason = rejectionReason.String
	return &app, nil
}

// GetReimbursement loads a single reimbursement obligation.
func GetReimbursement(ctx context.Context, q Querier, reimbursementID string) (*models.Reimbursement, error) {
	var r models.Reimbursement
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, application_id, amount_due, amount_paid,
		       due_date, status, paid_at, created_at
		FROM welfare_reimbursements
		WHERE id = $1`, reimbursementID).Scan(
		&r.ID, &r.UserID, &r.ApplicationID, &r.AmountDue, &r.AmountPaid,
		&r.DueDate, &r.Status, &r.PaidAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRegistration loads a single fund enrollment.
func GetRegistration(ctx context.Context, q Querier, registrationID string) (*models.Registration, error) {
	var r models.Registration
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, registration_fee, payment_status, status,
		       registration_date, activated_at
		FROM welfare_registrations
		WHERE id = $1`, registrationID).Scan(
		&r.ID, &r.UserID, &r.RegistrationFee, &r.PaymentStatus, &r.Status,
		&r.RegistrationDate, &r.ActivatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
