// internal/models/member.go
package models

// Member is the minimal identity the allocator needs: a registration id and
// its owning user.
type Member struct {
	RegistrationID string `json:"registrationId"`
	UserID         string `json:"userId"`
}

// MemberContact is used by the notification worker to reach a member.
type MemberContact struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Name   string `json:"name"`
}
