// internal/workers/welfare/reallocate-reimbursements/config.go
package reallocatereimbursements

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
