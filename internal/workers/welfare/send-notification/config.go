// internal/workers/welfare/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	AWSRegion    string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "no-reply@example.org",
		AWSRegion:    "us-east-1",
	}
}
