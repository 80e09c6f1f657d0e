// internal/providers/websearch/models.go
package websearch

// searchResponse mirrors the custom search API envelope, limited to the
// fields the provider consumes.
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Mime    string `json:"mime"`
}

// rankedResult is a search hit after filtering and relevance scoring.
type rankedResult struct {
	URL       string
	Title     string
	Snippet   string
	Relevance float64
}
