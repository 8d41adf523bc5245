// internal/welfare/allocator.go
package welfare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

// Allocate splits an application's claim amount evenly across the current
// active paid members and creates one reimbursement obligation per member
// that does not already hold one. It returns the number of rows created.
//
// The routine is idempotent by construction: members that already have a row
// for this application are skipped, so a retry after a crash between the
// status transition and the bulk insert creates no duplicates, and a later
// administrative re-run only tops up members who activated after the first
// allocation. The unique (user_id, application_id) constraint in the store
// backstops concurrent runs this filter cannot see.
//
// Every member pays the same share, rounded half-up to two decimals. The
// summed obligations may drift from the claim amount by up to one cent per
// member; the drift is accepted, not redistributed.
func Allocate(ctx context.Context, q Querier, app *models.Application) (int, error) {
	members, err := ActiveMembers(ctx, q)
	if err != nil {
		return 0, errors.NewStorageFailureError("snapshot active members", err)
	}
	if len(members) == 0 {
		return 0, errors.NewNoActiveMembersError(app.ID)
	}

	share := app.ClaimAmount.DivRound(decimal.NewFromInt(int64(len(members))), 2)

	existing, err := allocatedUsers(ctx, q, app.ID)
	if err != nil {
		return 0, errors.NewStorageFailureError("load existing reimbursements", err)
	}

	var newMembers []models.Member
	for _, m := range members {
		if _, ok := existing[m.UserID]; !ok {
			newMembers = append(newMembers, m)
		}
	}
	if len(newMembers) == 0 {
		return 0, errors.NewAlreadyAllocatedError(app.ID)
	}

	if err := insertReimbursements(ctx, q, app, newMembers, share); err != nil {
		return 0, errors.NewStorageFailureError("insert reimbursements", err)
	}

	return len(newMembers), nil
}

// allocatedUsers returns the set of user ids that already hold a
// reimbursement row for the application.
func allocatedUsers(ctx context.Context, q Querier, applicationID string) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id FROM welfare_reimbursements
		WHERE application_id = $1`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make(map[string]struct{})
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users[userID] = struct{}{}
	}
	return users, rows.Err()
}

// insertReimbursements bulk-inserts one PENDING obligation per member.
func insertReimbursements(ctx context.Context, q Querier, app *models.Application, members []models.Member, share decimal.Decimal) error {
	now := time.Now().UTC()

	valueStrings := make([]string, 0, len(members))
	args := make([]interface{}, 0, len(members)*7)
	for i, m := range members {
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			uuid.New().String(),
			m.UserID,
			app.ID,
			share,
			app.ReimbursementDue,
			string(models.ReimbursementPending),
			now,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO welfare_reimbursements
			(id, user_id, application_id, amount_due, due_date, status, created_at)
		VALUES %s`, strings.Join(valueStrings, ", "))

	_, err := q.ExecContext(ctx, query, args...)
	return err
}
