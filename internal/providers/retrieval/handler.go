// Package retrieval answers document questions from the Elasticsearch
// knowledge index: filings, reports, and research notes.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/models"
)

const ProviderName = "retrieval"

type Provider struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewProvider(config *Config, client *elasticsearch.Client, log logger.Logger) *Provider {
	return &Provider{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{
			"provider": ProviderName,
		}),
	}
}

func (p *Provider) Capability() models.Capability {
	return models.CapabilityRetrieval
}

// Invoke runs a full-text search over the document index and assembles the
// best snippets into one answer section.
func (p *Provider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	query := strings.TrimSpace(params["query"])
	if query == "" {
		return nil, stderrors.NewInvalidParametersError("query is required for document retrieval")
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
	})
	if err != nil {
		return nil, stderrors.NewInternalError(err)
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.config.Index),
		p.client.Search.WithBody(strings.NewReader(string(body))),
		p.client.Search.WithSize(p.config.MaxResults),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, stderrors.NewUpstreamUnavailableError(ProviderName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, stderrors.NewIndexNotFoundError(p.config.Index)
		}
		return nil, stderrors.NewUpstreamUnavailableError(ProviderName, fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, stderrors.NewUpstreamUnavailableError(ProviderName, fmt.Errorf("decode error: %w", err))
	}

	payload := p.buildPayload(&parsed)

	p.logger.Info("documents retrieved", map[string]interface{}{
		"query":     query,
		"totalHits": parsed.Hits.Total.Value,
		"used":      len(payload.Sources),
	})

	return payload, nil
}

func (p *Provider) buildPayload(parsed *searchResponse) *models.Payload {
	var parts []string
	var sources []models.Source

	for _, hit := range parsed.Hits.Hits {
		if hit.Score < p.config.MinScore {
			continue
		}

		snippet := hit.Source.Content
		if len(snippet) > p.config.SnippetLength {
			snippet = snippet[:p.config.SnippetLength] + "..."
		}

		if hit.Source.Title != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", hit.Source.Title, snippet))
		} else {
			parts = append(parts, snippet)
		}

		name := hit.Source.Title
		if name == "" {
			name = "untitled document"
		}
		sources = append(sources, models.Source{Name: name, Score: hit.Score})
	}

	if len(parts) == 0 {
		return &models.Payload{
			Content: "No matching documents found.",
			Data:    map[string]interface{}{"totalHits": parsed.Hits.Total.Value},
		}
	}

	return &models.Payload{
		Content: strings.Join(parts, "\n\n"),
		Sources: sources,
		Data: map[string]interface{}{
			"totalHits": parsed.Hits.Total.Value,
			"maxScore":  parsed.Hits.MaxScore,
		},
	}
}
