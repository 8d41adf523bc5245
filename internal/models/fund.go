// internal/models/fund.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundSnapshot is the persisted aggregate view of the fund. It is derived
// state: it can always be rebuilt from registrations and applications, and is
// only ever written by the statistics aggregator.
type FundSnapshot struct {
	ID               string          `json:"id"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TotalMembers     int             `json:"totalMembers"`
	ActiveMembers    int             `json:"activeMembers"`
	IsOperational    bool            `json:"isOperational"`
	LaunchDate       *time.Time      `json:"launchDate,omitempty"`
	WaitingPeriodEnd *time.Time      `json:"waitingPeriodEnd,omitempty"`
	LastUpdated      time.Time       `json:"lastUpdated"`
}

// Equal compares the derived fields that recompute may change. LaunchDate and
// WaitingPeriodEnd are set-once and excluded: once written they never differ.
func (f *FundSnapshot) Equal(other *FundSnapshot) bool {
	return f.TotalAmount.Equal(other.TotalAmount) &&
		f.TotalMembers == other.TotalMembers &&
		f.ActiveMembers == other.ActiveMembers &&
		f.IsOperational == other.IsOperational
}
