// internal/workers/welfare/send-notification/models.go
package sendnotification

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelBoth  = "both"

	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

// Notification templates by type. Placeholders use {{key}} syntax and are
// filled from the input metadata.
const (
	TypeApplicationApproved = "application_approved"
	TypeApplicationRejected = "application_rejected"
	TypeClaimPaid           = "claim_paid"
	TypeReimbursementDue    = "reimbursement_due"
)

type Input struct {
	UserID           string                 `json:"userId"`
	NotificationType string                 `json:"notificationType"`
	Channel          string                 `json:"channel"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CallerID         string                 `json:"callerId"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
	SentAt         string `json:"sentAt"`
}
