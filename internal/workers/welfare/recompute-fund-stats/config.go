// internal/workers/welfare/recompute-fund-stats/config.go
package recomputefundstats

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
