// internal/workers/welfare/mark-application-paid/models.go
package markapplicationpaid

type Input struct {
	ApplicationID string `json:"applicationId"`
	CallerID      string `json:"callerId"`
	SessionToken  string `json:"sessionToken,omitempty"`
}

type Output struct {
	ApplicationID         string `json:"applicationId"`
	Status                string `json:"status"`
	PayoutDate            string `json:"payoutDate"`
	ReimbursementDue      string `json:"reimbursementDue"`
	ReimbursementsCreated int    `json:"reimbursementsCreated"`
}
