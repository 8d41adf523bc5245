// internal/models/application.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus is the claim lifecycle state. Transitions are monotonic:
// PENDING -> APPROVED -> PAID, or PENDING -> REJECTED. PAID and REJECTED are
// terminal.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
	ApplicationPaid     ApplicationStatus = "PAID"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationPaid:
		return true
	}
	return false
}

// CanTransitionTo encodes the claim state machine.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationPending:
		return next == ApplicationApproved || next == ApplicationRejected
	case ApplicationApproved:
		return next == ApplicationPaid
	default:
		return false
	}
}

// Application is a claim submitted for a qualifying event (e.g. death of a
// beneficiary). ClaimAmount is fixed at creation; there is no post-approval
// amount edit path.
type Application struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	DeceasedName     string            `json:"deceasedName"`
	ApplicationType  string            `json:"applicationType"`
	ClaimAmount      decimal.Decimal   `json:"claimAmount"`
	Status           ApplicationStatus `json:"status"`
	ApprovedAt       *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time        `json:"rejectedAt,omitempty"`
	RejectionReason  string            `json:"rejectionReason,omitempty"`
	PayoutDate       *time.Time        `json:"payoutDate,omitempty"`
	ReimbursementDue *time.Time        `json:"reimbursementDue,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}
