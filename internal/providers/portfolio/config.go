// internal/providers/portfolio/config.go
package portfolio

type Config struct {
	// TopN bounds how many positions a top_holdings answer lists.
	TopN int
}

func DefaultConfig() *Config {
	return &Config{TopN: 5}
}
