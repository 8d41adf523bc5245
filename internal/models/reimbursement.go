// internal/models/reimbursement.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReimbursementStatus tracks a member's obligation. PENDING -> PAID exactly
// once, never back.
type ReimbursementStatus string

const (
	ReimbursementPending ReimbursementStatus = "PENDING"
	ReimbursementPaid    ReimbursementStatus = "PAID"
)

// Reimbursement is one member's obligated share of a paid claim. Exactly one
// row exists per (user, application) pair; the store enforces the uniqueness.
type Reimbursement struct {
	ID            string              `json:"id"`
	UserID        string              `json:"userId"`
	ApplicationID string              `json:"applicationId"`
	AmountDue     decimal.Decimal     `json:"amountDue"`
	AmountPaid    decimal.Decimal     `json:"amountPaid"`
	DueDate       *time.Time          `json:"dueDate,omitempty"`
	Status        ReimbursementStatus `json:"status"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}
