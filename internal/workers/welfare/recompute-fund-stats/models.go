// internal/workers/welfare/recompute-fund-stats/models.go
package recomputefundstats

type Input struct {
	CallerID     string `json:"callerId"`
	SessionToken string `json:"sessionToken,omitempty"`
}

type Output struct {
	TotalMembers     int    `json:"totalMembers"`
	ActiveMembers    int    `json:"activeMembers"`
	TotalAmount      string `json:"totalAmount"`
	IsOperational    bool   `json:"isOperational"`
	LaunchDate       string `json:"launchDate,omitempty"`
	WaitingPeriodEnd string `json:"waitingPeriodEnd,omitempty"`
}
