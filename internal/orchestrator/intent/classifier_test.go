// internal/orchestrator/intent/classifier_test.go
package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/common/logger"
	"finassist/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClassifier(t *testing.T) *Classifier {
	return NewClassifier(DefaultConfig(), logger.NewTestLogger(t))
}

func makeQuery(question string) models.Query {
	return models.Query{ID: "q-1", Question: question}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestClassifier_SingleStockQuery(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(makeQuery("NVDA stock quote"))

	require.Len(t, intent.Requests, 1)
	assert.False(t, intent.Fallback)

	req := intent.Requests[0]
	assert.Equal(t, models.CapabilityStock, req.Capability)
	assert.Equal(t, "NVDA", req.Params["symbol"])
	assert.InDelta(t, 1.0, req.Confidence, 0.001)
}

func TestClassifier_MultiIntentQuery(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(makeQuery("What is the latest news on NVDA stock and how are my holdings doing?"))

	require.Len(t, intent.Requests, 4)
	assert.False(t, intent.Fallback)

	// Confidence descending, routing priority breaks ties.
	caps := intent.Capabilities()
	assert.Equal(t, []models.Capability{
		models.CapabilityWebSearch,
		models.CapabilityPortfolio,
		models.CapabilityStock,
		models.CapabilityRetrieval,
	}, caps)

	for _, req := range intent.Requests {
		if req.Capability == models.CapabilityStock {
			assert.Equal(t, "NVDA", req.Params["symbol"])
		}
	}
}

func TestClassifier_MultiIntentRelaxesThreshold(t *testing.T) {
	c := newTestClassifier(t)

	// Stock dominates but retrieval still clears the relaxed threshold.
	intent := c.Classify(makeQuery("Explain Apple stock price movement"))

	caps := intent.Capabilities()
	assert.Contains(t, caps, models.CapabilityStock)
	assert.Contains(t, caps, models.CapabilityRetrieval)
}

func TestClassifier_FallbackWhenNothingMatches(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(makeQuery("hola amigo"))

	require.Len(t, intent.Requests, 1)
	assert.True(t, intent.Fallback)
	assert.Equal(t, models.CapabilityRetrieval, intent.Requests[0].Capability)
	assert.Equal(t, "hola amigo", intent.Requests[0].Params["query"])
}

func TestClassifier_WeakSignalAloneFallsBack(t *testing.T) {
	c := newTestClassifier(t)

	// A single weak keyword scores 0.3, under the 0.4 threshold.
	intent := c.Classify(makeQuery("is it worth it"))

	require.Len(t, intent.Requests, 1)
	assert.True(t, intent.Fallback)
}

func TestClassifier_EmailQuery(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(makeQuery("Send a daily snapshot report to john@example.com"))

	require.Len(t, intent.Requests, 1)
	req := intent.Requests[0]
	assert.Equal(t, models.CapabilityEmail, req.Capability)
	assert.Equal(t, "john@example.com", req.Params["recipient"])
	assert.Equal(t, "daily_snapshot", req.Params["report"])
}

func TestClassifier_PortfolioMetricExtraction(t *testing.T) {
	tests := []struct {
		name     string
		question string
		metric   string
	}{
		{
			name:     "top holdings",
			question: "Show my top holdings",
			metric:   "top_holdings",
		},
		{
			name:     "sector allocation",
			question: "What does my sector allocation look like in my portfolio",
			metric:   "sector_allocation",
		},
		{
			name:     "default analyze",
			question: "How is my portfolio performing",
			metric:   "analyze",
		},
	}

	c := newTestClassifier(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(makeQuery(tt.question))

			var found *models.CapabilityRequest
			for i := range intent.Requests {
				if intent.Requests[i].Capability == models.CapabilityPortfolio {
					found = &intent.Requests[i]
				}
			}
			require.NotNil(t, found, "portfolio capability not selected")
			assert.Equal(t, tt.metric, found.Params["metric"])
		})
	}
}

func TestClassifier_StructuredParamsOmitQuestionText(t *testing.T) {
	c := newTestClassifier(t)

	questions := []string{
		"NVDA stock quote",
		"How is my portfolio performing",
		"Send a daily snapshot report to john@example.com",
	}
	for _, question := range questions {
		intent := c.Classify(makeQuery(question))
		for _, req := range intent.Requests {
			switch req.Capability {
			case models.CapabilityStock, models.CapabilityPortfolio, models.CapabilityEmail:
				assert.NotContains(t, req.Params, "query", question)
			}
		}
	}
}

// ==========================
// Configuration Tests
// ==========================

func TestClassifier_DisabledCapabilityNeverSelected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Disabled = map[models.Capability]bool{
		models.CapabilityWebSearch: true,
	}
	c := NewClassifier(cfg, logger.NewTestLogger(t))

	intent := c.Classify(makeQuery("latest news headlines"))

	require.Len(t, intent.Requests, 1)
	assert.True(t, intent.Fallback)
	assert.Equal(t, models.CapabilityRetrieval, intent.Requests[0].Capability)
}

func TestClassifier_MaxFanoutCapsSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFanout = 2
	c := NewClassifier(cfg, logger.NewTestLogger(t))

	intent := c.Classify(makeQuery("What is the latest news on NVDA stock and how are my holdings doing?"))

	require.Len(t, intent.Requests, 2)
	assert.Equal(t, []models.Capability{
		models.CapabilityWebSearch,
		models.CapabilityPortfolio,
	}, intent.Capabilities())
}

// ==========================
// Ticker Extraction Tests
// ==========================

func TestExtractTicker(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected string
	}{
		{name: "company name", question: "price of Tesla today", expected: "TSLA"},
		{name: "lowercase symbol", question: "what is nvda trading at", expected: "NVDA"},
		{name: "bare uppercase symbol", question: "quote for SHOP please", expected: "SHOP"},
		{name: "stop word ignored", question: "SEND the price", expected: ""},
		{name: "no symbol", question: "how are markets", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTicker(tt.question))
		})
	}
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkClassifier_Classify(b *testing.B) {
	c := NewClassifier(DefaultConfig(), logger.NewNoOpLogger())
	q := makeQuery("What is the latest news on NVDA stock and how are my holdings doing?")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Classify(q)
	}
}
