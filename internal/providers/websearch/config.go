// internal/providers/websearch/config.go
package websearch

import "time"

type Config struct {
	BaseURL      string
	APIKey       string
	EngineID     string
	Timeout      time.Duration
	MaxResults   int
	MinRelevance float64
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://www.googleapis.com/customsearch",
		Timeout:      10 * time.Second,
		MaxResults:   5,
		MinRelevance: 0.5,
	}
}
