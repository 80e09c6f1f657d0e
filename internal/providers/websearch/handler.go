// Package websearch answers market news and current-events questions via
// the custom search API.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/httpclient"
	"finassist/internal/common/logger"
	"finassist/internal/models"
)

const ProviderName = "websearch"

type Provider struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewProvider(config *Config, log logger.Logger) *Provider {
	return &Provider{
		config: config,
		client: httpclient.NewClient(config.Timeout),
		logger: log.With(map[string]interface{}{
			"provider": ProviderName,
		}),
	}
}

func (p *Provider) Capability() models.Capability {
	return models.CapabilityWebSearch
}

func (p *Provider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	query := strings.TrimSpace(params["query"])
	if query == "" {
		return nil, stderrors.NewInvalidParametersError("query is required for web search")
	}

	resp, err := p.client.Get(ctx, p.searchURL(query))
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			strings.Contains(err.Error(), "Client.Timeout") {
			return nil, context.DeadlineExceeded
		}
		return nil, stderrors.NewWebSearchFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, stderrors.NewRateLimitedError(ProviderName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, stderrors.NewWebSearchFailedError(fmt.Errorf("search API returned %d", resp.StatusCode))
	}

	var apiResponse searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, stderrors.NewWebSearchFailedError(fmt.Errorf("decode error: %w", err))
	}

	results := p.processResults(apiResponse.Items)

	p.logger.Info("web search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(results),
	})

	return buildPayload(results), nil
}

func (p *Provider) searchURL(query string) string {
	baseURL, _ := url.Parse(p.config.BaseURL + "/v1")
	params := url.Values{}
	params.Add("key", p.config.APIKey)
	params.Add("cx", p.config.EngineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", p.config.MaxResults))
	baseURL.RawQuery = params.Encode()
	return baseURL.String()
}

func (p *Provider) processResults(items []searchItem) []rankedResult {
	seen := make(map[string]bool)
	var results []rankedResult

	for _, item := range items {
		// Skip non-HTML
		if item.Mime != "" && !strings.Contains(item.Mime, "html") {
			continue
		}

		// Dedupe by URL
		if seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		relevance := 1.0
		if strings.Contains(item.Link, ".gov") || strings.Contains(item.Link, ".edu") {
			relevance += 0.2
		}
		if strings.Contains(strings.ToLower(item.Title), "official") {
			relevance += 0.1
		}

		if relevance >= p.config.MinRelevance {
			results = append(results, rankedResult{
				URL:       item.Link,
				Title:     item.Title,
				Snippet:   item.Snippet,
				Relevance: relevance,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	if p.config.MaxResults > 0 && len(results) > p.config.MaxResults {
		results = results[:p.config.MaxResults]
	}

	return results
}

func buildPayload(results []rankedResult) *models.Payload {
	if len(results) == 0 {
		return &models.Payload{
			Content: "No relevant web results found.",
			Data:    map[string]interface{}{"resultCount": 0},
		}
	}

	var parts []string
	sources := make([]models.Source, 0, len(results))
	links := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Title, r.Snippet))
		sources = append(sources, models.Source{Name: r.URL, Score: r.Relevance})
		links = append(links, map[string]interface{}{
			"url":       r.URL,
			"title":     r.Title,
			"relevance": r.Relevance,
		})
	}

	return &models.Payload{
		Content: strings.Join(parts, "\n\n"),
		Sources: sources,
		Data: map[string]interface{}{
			"resultCount": len(results),
			"results":     links,
		},
	}
}
