// internal/orchestrator/intent/rules.go
package intent

import (
	"regexp"

	"finassist/internal/models"
)

// keywordRule holds the scoring vocabulary for one capability.
type keywordRule struct {
	strong []string
	weak   []string
}

// capabilityRule pairs the regex boost pattern with routing priority.
// Lower priority wins ties after confidence ordering.
type capabilityRule struct {
	pattern  *regexp.Regexp
	priority int
}

var keywordRules = map[models.Capability]keywordRule{
	models.CapabilityStock: {
		strong: []string{"price", "ticker", "quote", "trading", "share", "stock", "moving average"},
		weak:   []string{"current", "value", "worth"},
	},
	models.CapabilityPortfolio: {
		strong: []string{"portfolio", "holdings", "my stocks", "allocation", "positions", "my holdings"},
		weak:   []string{"performance", "return", "total"},
	},
	models.CapabilityWebSearch: {
		strong: []string{"news", "latest", "recent", "breaking", "headlines", "update"},
		weak:   []string{"today", "this week", "current"},
	},
	models.CapabilityRetrieval: {
		strong: []string{"explain", "what is", "define", "how does", "why", "tell me about", "proxy statements", "annual reports"},
		weak:   []string{"information", "details", "about"},
	},
	models.CapabilityEmail: {
		strong: []string{"email", "send", "notify", "report", "snapshot", "mail"},
		weak:   []string{"daily", "summary"},
	},
}

var capabilityRules = map[models.Capability]capabilityRule{
	models.CapabilityStock: {
		pattern:  regexp.MustCompile(`(?i)(price|current price|\d+[- ]?day|moving average|stock summary|ticker|quote)`),
		priority: 1,
	},
	models.CapabilityWebSearch: {
		pattern:  regexp.MustCompile(`(?i)(news|latest|update|headlines|recent|breaking)`),
		priority: 2,
	},
	models.CapabilityPortfolio: {
		pattern:  regexp.MustCompile(`(?i)(portfolio|top holdings|sector allocation|my stocks|my holdings)`),
		priority: 3,
	},
	models.CapabilityRetrieval: {
		pattern:  regexp.MustCompile(`(?i)(explain|what is|who|give info|define|describe|tell me)`),
		priority: 4,
	},
	models.CapabilityEmail: {
		pattern:  regexp.MustCompile(`(?i)(daily snapshot|send email|email report|notify|mail)`),
		priority: 5,
	},
}

// knownTickers maps company names and symbols spoken in queries to their
// exchange tickers.
var knownTickers = map[string]string{
	"tesla":     "TSLA",
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"google":    "GOOGL",
	"amazon":    "AMZN",
	"meta":      "META",
	"nvidia":    "NVDA",
	"tsla":      "TSLA",
	"aapl":      "AAPL",
	"msft":      "MSFT",
	"googl":     "GOOGL",
	"amzn":      "AMZN",
	"nvda":      "NVDA",
}

var stockContextWords = []string{"stock", "price", "ticker", "quote", "shares"}
var portfolioBoostWords = []string{"my", "holdings", "portfolio", "top", "allocation"}
var emailBoostWords = []string{"send", "email", "mail", "snapshot", "report", "daily"}
var newsBoostWords = []string{"news", "latest", "recent", "update", "headlines"}

// bareTickerPattern spots uppercase symbols like NVDA in the raw question.
var bareTickerPattern = regexp.MustCompile(`\b([A-Z]{2,5})\b`)

// recipientPattern extracts an email address for the email capability.
var recipientPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
