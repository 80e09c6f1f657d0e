// Package stock serves live quote lookups against the market data API.
package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/httpclient"
	"finassist/internal/common/logger"
	"finassist/internal/common/validation"
	"finassist/internal/models"
)

const ProviderName = "stock"

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
	return models.CapabilityStock
}

// Invoke fetches a quote for the symbol extracted by the classifier.
// Transient upstream failures are retried with exponential backoff inside
// the capability deadline.
func (p *Provider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	symbol := params["symbol"]
	if symbol == "" {
		return nil, stderrors.NewInvalidParametersError("symbol is required for stock lookups")
	}
	if !validation.ValidateTicker(symbol) {
		return nil, stderrors.NewInvalidParametersError(fmt.Sprintf("malformed ticker symbol: %s", symbol))
	}

	quote, err := p.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.logger.Info("quote fetched", map[string]interface{}{
		"symbol": quote.Symbol,
		"price":  quote.Price,
	})

	return &models.Payload{
		Content: formatQuote(quote),
		Sources: []models.Source{
			{Name: fmt.Sprintf("market-data:%s", quote.Symbol), Score: 1.0},
		},
		Data: map[string]interface{}{
			"symbol":        quote.Symbol,
			"price":         quote.Price,
			"change":        quote.Change,
			"changePercent": quote.ChangePercent,
			"currency":      quote.Currency,
		},
	}, nil
}

func (p *Provider) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, lastErr = p.client.Get(ctx, p.quoteURL(symbol))

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, context.DeadlineExceeded
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				lastErr = stderrors.NewRateLimitedError(ProviderName)
			} else {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
			}
			resp = nil
		}
	}

	if lastErr != nil {
		var stdErr *stderrors.StandardError
		if errors.As(lastErr, &stdErr) {
			return nil, stdErr
		}
		return nil, stderrors.NewUpstreamUnavailableError(ProviderName, lastErr)
	}
	defer resp.Body.Close()

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, stderrors.NewUpstreamUnavailableError(ProviderName, fmt.Errorf("decode error: %w", err))
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}

	return &quote, nil
}

func (p *Provider) quoteURL(symbol string) string {
	baseURL, _ := url.Parse(p.config.BaseURL + "/v1/quote")
	params := url.Values{}
	params.Add("symbol", symbol)
	if p.config.APIKey != "" {
		params.Add("apikey", p.config.APIKey)
	}
	baseURL.RawQuery = params.Encode()
	return baseURL.String()
}

func formatQuote(q *Quote) string {
	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s: %.2f %s (%+.2f, %+.2f%%)",
		q.Symbol, q.Price, currency, q.Change, q.ChangePercent)
}
