// internal/workers/welfare/approve-application/models.go
package approveapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	CallerID      string `json:"callerId"`
	SessionToken  string `json:"sessionToken,omitempty"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	ApprovedAt    string `json:"approvedAt"`
}
