// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"

	"finassist/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

const defaultDocumentIndex = "documents"

// ElasticsearchClient holds the cluster connection together with the
// document index the retrieval capability searches.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = defaultDocumentIndex
	}

	return &ElasticsearchClient{Client: es, Index: index}, nil
}

// Ping verifies the cluster is reachable within the caller's deadline.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// Info queries cluster metadata, used by the health endpoint.
func (c *ElasticsearchClient) Info(ctx context.Context) error {
	res, err := c.Client.Info(
		c.Client.Info.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch info error: %s", res.Status())
	}
	return nil
}
