// internal/providers/stock/config.go
package stock

import "time"

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}
}
