// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRegistry reads an activity registry from a JSON file. Deployments can
// override the built-in catalog by shipping their own registry file.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects registries with missing or duplicate task types.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.TaskType == "" {
			return fmt.Errorf("activity %q has no task type", a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return nil
}

// Builtin returns the catalog of activities this service implements.
func Builtin() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-08-20",
		Activities: []Activity{
			{
				ID:          "approve-application",
				DisplayName: "Approve Welfare Application",
				Description: "Moves a pending claim application to APPROVED",
				Category:    "application-lifecycle",
				TaskType:    "welfare-approve-application",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE"},
				Retries:     3,
				Tags:        []string{"welfare", "application"},
			},
			{
				ID:          "reject-application",
				DisplayName: "Reject Welfare Application",
				Description: "Moves a pending claim application to REJECTED with a reason",
				Category:    "application-lifecycle",
				TaskType:    "welfare-reject-application",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE", "VALIDATION_FAILED"},
				Retries:     3,
				Tags:        []string{"welfare", "application"},
			},
			{
				ID:          "mark-application-paid",
				DisplayName: "Mark Application Paid",
				Description: "Records the claim payout and allocates reimbursement shares to active members",
				Category:    "application-lifecycle",
				TaskType:    "welfare-mark-application-paid",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE", "NO_ACTIVE_MEMBERS"},
				Retries:     3,
				Tags:        []string{"welfare", "application", "allocation"},
			},
			{
				ID:          "reallocate-reimbursements",
				DisplayName: "Reallocate Reimbursements",
				Description: "Allocates shares for members who joined after the original payout",
				Category:    "allocation",
				TaskType:    "welfare-reallocate-reimbursements",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE", "ALREADY_ALLOCATED"},
				Retries:     3,
				Tags:        []string{"welfare", "allocation", "admin"},
			},
			{
				ID:          "mark-reimbursement-paid",
				DisplayName: "Mark Reimbursement Paid",
				Description: "Settles a member's reimbursement share",
				Category:    "reimbursement",
				TaskType:    "welfare-mark-reimbursement-paid",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE", "VALIDATION_FAILED"},
				Retries:     3,
				Tags:        []string{"welfare", "reimbursement"},
			},
			{
				ID:          "update-registration-status",
				DisplayName: "Update Registration Status",
				Description: "Transitions a member registration and refreshes fund statistics",
				Category:    "registration",
				TaskType:    "welfare-update-registration-status",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "INVALID_STATE", "VALIDATION_FAILED"},
				Retries:     3,
				Tags:        []string{"welfare", "registration"},
			},
			{
				ID:          "recompute-fund-stats",
				DisplayName: "Recompute Fund Statistics",
				Description: "Recounts members and refreshes the fund snapshot and cache",
				Category:    "fund",
				TaskType:    "welfare-recompute-fund-stats",
				ErrorCodes:  []string{"UNAUTHORIZED", "STORAGE_FAILURE"},
				Retries:     3,
				Tags:        []string{"welfare", "fund", "admin"},
			},
			{
				ID:          "send-notification",
				DisplayName: "Send Member Notification",
				Description: "Delivers email and SMS notifications to members",
				Category:    "communication",
				TaskType:    "welfare-send-notification",
				ErrorCodes:  []string{"UNAUTHORIZED", "NOT_FOUND", "VALIDATION_FAILED", "NOTIFICATION_SEND_FAILED"},
				Retries:     3,
				Tags:        []string{"welfare", "notification"},
			},
		},
	}
}
