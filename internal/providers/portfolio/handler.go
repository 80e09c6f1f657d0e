// Package portfolio answers questions about the user's holdings from the
// relational store. Three metrics are supported: analyze (overall value
// and P/L), top_holdings, and sector_allocation.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/models"
)

const ProviderName = "portfolio"

const holdingsQuery = `
	SELECT symbol, company, sector, quantity, avg_cost, last_price
	FROM holdings
	ORDER BY symbol`

type Provider struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewProvider(config *Config, db *sql.DB, log logger.Logger) *Provider {
	return &Provider{
		config: config,
		db:     db,
		logger: log.With(map[string]interface{}{
			"provider": ProviderName,
		}),
	}
}

func (p *Provider) Capability() models.Capability {
	return models.CapabilityPortfolio
}

func (p *Provider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	metric := params["metric"]
	if metric == "" {
		metric = "analyze"
	}

	holdings, err := p.loadHoldings(ctx, metric)
	if err != nil {
		return nil, err
	}

	p.logger.Info("holdings loaded", map[string]interface{}{
		"metric":    metric,
		"positions": len(holdings),
	})

	switch metric {
	case "analyze":
		return analyzePayload(holdings), nil
	case "top_holdings":
		return topHoldingsPayload(holdings, p.config.TopN), nil
	case "sector_allocation":
		return sectorAllocationPayload(holdings), nil
	}
	return nil, stderrors.NewInvalidMetricError(metric)
}

func (p *Provider) loadHoldings(ctx context.Context, metric string) ([]Holding, error) {
	// Validate the metric before touching the database.
	switch metric {
	case "analyze", "top_holdings", "sector_allocation":
	default:
		return nil, stderrors.NewInvalidMetricError(metric)
	}

	rows, err := p.db.QueryContext(ctx, holdingsQuery)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, stderrors.NewHoldingsQueryFailedError(metric, err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.Symbol, &h.Company, &h.Sector, &h.Quantity, &h.AvgCost, &h.LastPrice); err != nil {
			return nil, stderrors.NewHoldingsQueryFailedError(metric, err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewHoldingsQueryFailedError(metric, err)
	}

	return holdings, nil
}

func analyzePayload(holdings []Holding) *models.Payload {
	if len(holdings) == 0 {
		return emptyPayload()
	}

	var value, cost float64
	for _, h := range holdings {
		value += h.Value()
		cost += h.Cost()
	}
	pnl := value - cost
	pnlPct := 0.0
	if cost > 0 {
		pnlPct = pnl / cost * 100
	}

	content := fmt.Sprintf(
		"Portfolio value: %.2f USD across %d positions. Unrealized P/L: %+.2f USD (%+.2f%%).",
		value, len(holdings), pnl, pnlPct,
	)

	return &models.Payload{
		Content: content,
		Sources: []models.Source{{Name: "portfolio-db", Score: 1.0}},
		Data: map[string]interface{}{
			"totalValue": value,
			"totalCost":  cost,
			"pnl":        pnl,
			"pnlPercent": pnlPct,
			"positions":  len(holdings),
		},
	}
}

func topHoldingsPayload(holdings []Holding, topN int) *models.Payload {
	if len(holdings) == 0 {
		return emptyPayload()
	}

	sorted := make([]Holding, len(holdings))
	copy(sorted, holdings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value() > sorted[j].Value()
	})
	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}

	var lines []string
	top := make([]map[string]interface{}, 0, len(sorted))
	for i, h := range sorted {
		lines = append(lines, fmt.Sprintf("%d. %s (%s): %.2f USD", i+1, h.Symbol, h.Company, h.Value()))
		top = append(top, map[string]interface{}{
			"symbol": h.Symbol,
			"value":  h.Value(),
		})
	}

	return &models.Payload{
		Content: "Top holdings:\n" + strings.Join(lines, "\n"),
		Sources: []models.Source{{Name: "portfolio-db", Score: 1.0}},
		Data:    map[string]interface{}{"topHoldings": top},
	}
}

func sectorAllocationPayload(holdings []Holding) *models.Payload {
	if len(holdings) == 0 {
		return emptyPayload()
	}

	var total float64
	bySector := make(map[string]float64)
	for _, h := range holdings {
		sector := h.Sector
		if sector == "" {
			sector = "Unclassified"
		}
		bySector[sector] += h.Value()
		total += h.Value()
	}

	sectors := make([]string, 0, len(bySector))
	for s := range bySector {
		sectors = append(sectors, s)
	}
	sort.Slice(sectors, func(i, j int) bool {
		return bySector[sectors[i]] > bySector[sectors[j]]
	})

	var lines []string
	allocation := make(map[string]interface{}, len(sectors))
	for _, s := range sectors {
		pct := 0.0
		if total > 0 {
			pct = bySector[s] / total * 100
		}
		lines = append(lines, fmt.Sprintf("%s: %.1f%%", s, pct))
		allocation[s] = pct
	}

	return &models.Payload{
		Content: "Sector allocation: " + strings.Join(lines, ", "),
		Sources: []models.Source{{Name: "portfolio-db", Score: 1.0}},
		Data:    map[string]interface{}{"sectorAllocation": allocation},
	}
}

func emptyPayload() *models.Payload {
	return &models.Payload{
		Content: "No holdings on record.",
		Data:    map[string]interface{}{"positions": 0},
	}
}
