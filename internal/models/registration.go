// internal/models/registration.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationStatus is the lifecycle state of a member's fund enrollment.
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "ACTIVE"
	RegistrationSuspended RegistrationStatus = "SUSPENDED"
	RegistrationInactive  RegistrationStatus = "INACTIVE"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationActive, RegistrationSuspended, RegistrationInactive:
		return true
	}
	return false
}

// PaymentStatus tracks whether the registration fee has been settled.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Registration is one member's enrollment in the welfare fund.
type Registration struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	RegistrationFee  decimal.Decimal    `json:"registrationFee"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus"`
	Status           RegistrationStatus `json:"status"`
	RegistrationDate time.Time          `json:"registrationDate"`
	ActivatedAt      *time.Time         `json:"activatedAt,omitempty"`
}

// CanTransitionTo enforces that a registration only becomes ACTIVE or
// SUSPENDED once its fee is paid.
func (r *Registration) CanTransitionTo(next RegistrationStatus) bool {
	if !next.Valid() {
		return false
	}
	if (next == RegistrationActive || next == RegistrationSuspended) && r.PaymentStatus != PaymentPaid {
		return false
	}
	return true
}

// IsActiveMember reports whether the registration counts toward allocation.
func (r *Registration) IsActiveMember() bool {
	return r.Status == RegistrationActive && r.PaymentStatus == PaymentPaid
}
