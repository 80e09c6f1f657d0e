// internal/providers/retrieval/config.go
package retrieval

type Config struct {
	Index      string
	MaxResults int
	// SnippetLength caps how much of each document body is quoted in the
	// answer section.
	SnippetLength int
	MinScore      float64
}

func DefaultConfig() *Config {
	return &Config{
		Index:         "documents",
		MaxResults:    5,
		SnippetLength: 300,
		MinScore:      0.1,
	}
}
