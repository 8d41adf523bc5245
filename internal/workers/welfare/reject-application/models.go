// internal/workers/welfare/reject-application/models.go
package rejectapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	Reason        string `json:"reason"`
	CallerID      string `json:"callerId"`
	SessionToken  string `json:"sessionToken,omitempty"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	RejectedAt    string `json:"rejectedAt"`
}
