// internal/workers/welfare/mark-reimbursement-paid/models.go
package markreimbursementpaid

import "github.com/shopspring/decimal"

type Input struct {
	ReimbursementID string          `json:"reimbursementId"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	CallerID        string          `json:"callerId"`
	SessionToken    string          `json:"sessionToken,omitempty"`
}

type Output struct {
	ReimbursementID string `json:"reimbursementId"`
	Status          string `json:"status"`
	AmountPaid      string `json:"amountPaid"`
	PaidAt          string `json:"paidAt"`
}
