// Package intent turns a natural-language query into the set of
// capabilities worth dispatching, with a confidence score per capability.
package intent

import (
	"sort"
	"strings"

	"finassist/internal/common/logger"
	"finassist/internal/models"
)

type Config struct {
	// ConfidenceThreshold is the minimum score a capability needs to be
	// selected. Relaxed by MultiIntentRelax when several capabilities score
	// above zero, floored at 0.2.
	ConfidenceThreshold float64
	MultiIntentRelax    float64
	Fallback            models.Capability
	MaxFanout           int
	// Disabled capabilities are never selected regardless of score.
	Disabled map[models.Capability]bool
}

func DefaultConfig() *Config {
	return &Config{
		ConfidenceThreshold: 0.4,
		MultiIntentRelax:    0.1,
		Fallback:            models.CapabilityRetrieval,
		MaxFanout:           5,
	}
}

type Classifier struct {
	config *Config
	logger logger.Logger
}

func NewClassifier(config *Config, log logger.Logger) *Classifier {
	return &Classifier{
		config: config,
		logger: log.With(map[string]interface{}{
			"component": "intent-classifier",
		}),
	}
}

// Classify scores every capability against the query and returns the
// selected set, ordered by confidence then routing priority. A query that
// matches nothing yields a single fallback request so the caller always has
// something to dispatch.
func (c *Classifier) Classify(query models.Query) models.Intent {
	scores := c.score(query.Question)

	positive := 0
	for _, s := range scores {
		if s > 0 {
			positive++
		}
	}

	threshold := c.config.ConfidenceThreshold
	if positive > 1 {
		threshold = threshold - c.config.MultiIntentRelax
		if threshold < 0.2 {
			threshold = 0.2
		}
	}

	var requests []models.CapabilityRequest
	for _, capability := range models.AllCapabilities {
		if c.config.Disabled[capability] {
			continue
		}

		confidence := scores[capability]
		if rule, ok := capabilityRules[capability]; ok && rule.pattern.MatchString(query.Question) {
			if confidence < 0.5 {
				confidence = 0.5
			}
		}

		if confidence >= threshold {
			requests = append(requests, models.CapabilityRequest{
				Capability: capability,
				Params:     c.extractParams(capability, query.Question),
				Confidence: confidence,
			})
		}
	}

	if len(requests) == 0 {
		c.logger.Info("no capability matched, using fallback", map[string]interface{}{
			"queryId":  query.ID,
			"fallback": string(c.config.Fallback),
		})
		return models.Intent{
			Requests: []models.CapabilityRequest{{
				Capability: c.config.Fallback,
				Params:     c.extractParams(c.config.Fallback, query.Question),
				Confidence: 0,
			}},
			Fallback: true,
		}
	}

	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].Confidence != requests[j].Confidence {
			return requests[i].Confidence > requests[j].Confidence
		}
		return capabilityRules[requests[i].Capability].priority < capabilityRules[requests[j].Capability].priority
	})

	if c.config.MaxFanout > 0 && len(requests) > c.config.MaxFanout {
		requests = requests[:c.config.MaxFanout]
	}

	c.logger.Debug("capabilities selected", map[string]interface{}{
		"queryId":   query.ID,
		"selected":  len(requests),
		"threshold": threshold,
	})

	return models.Intent{Requests: requests}
}

// score computes keyword-based confidence per capability, capped at 1.0.
func (c *Classifier) score(question string) map[models.Capability]float64 {
	lower := strings.ToLower(question)
	scores := make(map[models.Capability]float64, len(keywordRules))

	for capability, rule := range keywordRules {
		strong := countMatches(lower, rule.strong)
		weak := countMatches(lower, rule.weak)

		var s float64
		if strong > 0 {
			s += 0.7*float64(strong) + 0.2*float64(strong-1)
		}
		if weak > 0 {
			s += 0.3 * float64(weak)
		}
		scores[capability] = s
	}

	// A known company name next to stock vocabulary is a strong stock signal.
	if containsAny(lower, stockContextWords) {
		for name := range knownTickers {
			if strings.Contains(lower, name) {
				if scores[models.CapabilityStock] < 0.8 {
					scores[models.CapabilityStock] = 0.8
				}
				break
			}
		}
	}

	if containsAny(lower, portfolioBoostWords) {
		if scores[models.CapabilityPortfolio] < 0.6 {
			scores[models.CapabilityPortfolio] = 0.6
		}
	}
	if containsAny(lower, emailBoostWords) {
		if scores[models.CapabilityEmail] < 0.7 {
			scores[models.CapabilityEmail] = 0.7
		}
	}
	if containsAny(lower, newsBoostWords) {
		if scores[models.CapabilityWebSearch] < 0.7 {
			scores[models.CapabilityWebSearch] = 0.7
		}
	}

	for capability, s := range scores {
		if s > 1.0 {
			scores[capability] = 1.0
		}
	}
	return scores
}

// extractParams pulls capability-specific parameters out of the question.
// Structured capabilities carry only the parameters their provider reads;
// cache keys derive from these params, so rephrasings of the same request
// map to the same entry. Free-text capabilities keep the question itself.
func (c *Classifier) extractParams(capability models.Capability, question string) map[string]string {
	params := map[string]string{}
	lower := strings.ToLower(question)

	switch capability {
	case models.CapabilityStock:
		if symbol := extractTicker(question); symbol != "" {
			params["symbol"] = symbol
		}
	case models.CapabilityPortfolio:
		params["metric"] = portfolioMetric(lower)
	case models.CapabilityEmail:
		if recipient := recipientPattern.FindString(question); recipient != "" {
			params["recipient"] = recipient
		}
		if strings.Contains(lower, "snapshot") || strings.Contains(lower, "daily") {
			params["report"] = "daily_snapshot"
		}
	default:
		params["query"] = question
	}
	return params
}

func portfolioMetric(lower string) string {
	switch {
	case strings.Contains(lower, "top holdings"), strings.Contains(lower, "top"):
		return "top_holdings"
	case strings.Contains(lower, "sector"), strings.Contains(lower, "allocation"):
		return "sector_allocation"
	}
	return "analyze"
}

// tickerStopWords are uppercase tokens that look like symbols but are not.
var tickerStopWords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "WHAT": true, "WHO": true,
	"HOW": true, "WHY": true, "NEWS": true, "DAY": true, "WEEK": true,
	"SEND": true, "MAIL": true, "TOP": true, "USD": true,
}

func extractTicker(question string) string {
	lower := strings.ToLower(question)
	for name, symbol := range knownTickers {
		if strings.Contains(lower, name) {
			return symbol
		}
	}
	for _, match := range bareTickerPattern.FindAllString(question, -1) {
		if !tickerStopWords[match] {
			return match
		}
	}
	return ""
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
