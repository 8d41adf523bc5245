// internal/workers/welfare/update-registration-status/models.go
package updateregistrationstatus

type Input struct {
	RegistrationID string `json:"registrationId"`
	NewStatus      string `json:"newStatus"`
	CallerID       string `json:"callerId"`
	SessionToken   string `json:"sessionToken,omitempty"`
}

type Output struct {
	RegistrationID string `json:"registrationId"`
	Status         string `json:"status"`
	ActiveMembers  int    `json:"activeMembers"`
	IsOperational  bool   `json:"isOperational"`
}
