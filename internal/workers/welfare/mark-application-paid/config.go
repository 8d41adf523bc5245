// internal/workers/welfare/mark-application-paid/config.go
package markapplicationpaid

import "time"

type Config struct {
	Timeout time.Duration
	// Days members get to settle their share, counted from the payout.
	ReimbursementWindowDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:                 15 * time.Second,
		ReimbursementWindowDays: 14,
	}
}
