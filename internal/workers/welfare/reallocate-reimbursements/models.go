// internal/workers/welfare/reallocate-reimbursements/models.go
package reallocatereimbursements

type Input struct {
	ApplicationID string `json:"applicationId"`
	CallerID      string `json:"callerId"`
	SessionToken  string `json:"sessionToken,omitempty"`
}

type Output struct {
	ApplicationID         string `json:"applicationId"`
	ReimbursementsCreated int    `json:"reimbursementsCreated"`
}
