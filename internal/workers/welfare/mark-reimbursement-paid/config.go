// internal/workers/welfare/mark-reimbursement-paid/config.go
package markreimbursementpaid

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
