// internal/orchestrator/aggregate/aggregator_test.go
package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestAggregator(t *testing.T) *Aggregator {
	return New(logger.NewTestLogger(t))
}

var testQuery = models.Query{ID: "q-1", Question: "test", Language: "en"}

func success(capability models.Capability, content string) models.ProviderResult {
	return models.ProviderResult{
		Capability: capability,
		Status:     models.ResultSuccess,
		Payload:    &models.Payload{Content: content},
		Provenance: models.ProvenanceLive,
	}
}

func timeout(capability models.Capability) models.ProviderResult {
	return models.ProviderResult{
		Capability:  capability,
		Status:      models.ResultTimeout,
		FailureKind: string(stderrors.ErrCodeProviderTimeout),
		Provenance:  models.ProvenanceDegraded,
	}
}

// ==========================
// Status Tests
// ==========================

func TestAggregator_AllSuccessIsComplete(t *testing.T) {
	a := newTestAggregator(t)

	resp := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityStock, "NVDA: $875.30"),
	})

	assert.Equal(t, models.StatusComplete, resp.Status)
	require.Len(t, resp.Sections, 1)
	assert.Equal(t, models.CapabilityStock, resp.Sections[0].Capability)
	assert.Empty(t, resp.ErrorSummary)
	assert.Equal(t, "en", resp.Language)
	assert.Equal(t, "q-1", resp.RequestID)
}

func TestAggregator_MixedIsPartial(t *testing.T) {
	a := newTestAggregator(t)

	resp := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityRetrieval, "annual report says..."),
		timeout(models.CapabilityPortfolio),
	})

	assert.Equal(t, models.StatusPartial, resp.Status)
	require.Len(t, resp.Sections, 2)

	assert.Equal(t, models.CapabilityRetrieval, resp.Sections[0].Capability)
	assert.Equal(t, models.ProvenanceLive, resp.Sections[0].Provenance)

	degraded := resp.Sections[1]
	assert.Equal(t, models.CapabilityPortfolio, degraded.Capability)
	assert.Equal(t, models.ProvenanceDegraded, degraded.Provenance)
	assert.Equal(t, string(stderrors.ErrCodeProviderTimeout), degraded.FailureKind)
	assert.Empty(t, degraded.Content)

	assert.Contains(t, resp.ErrorSummary, "portfolio")
	assert.Contains(t, resp.ErrorSummary, string(stderrors.ErrCodeProviderTimeout))
}

func TestAggregator_AllFailedIsFailed(t *testing.T) {
	a := newTestAggregator(t)

	resp := a.Merge(testQuery, []models.ProviderResult{
		timeout(models.CapabilityStock),
		{
			Capability:  models.CapabilityWebSearch,
			Status:      models.ResultFailure,
			FailureKind: string(stderrors.ErrCodeUpstreamUnavailable),
		},
	})

	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.NotEmpty(t, resp.ErrorSummary)

	// A failed response keeps one marker per attempted capability, but none
	// of them carries content.
	require.Len(t, resp.Sections, 2)
	for _, section := range resp.Sections {
		assert.Empty(t, section.Content)
		assert.Equal(t, models.ProvenanceDegraded, section.Provenance)
		assert.NotEmpty(t, section.FailureKind)
	}
}

func TestAggregator_NoResultsIsFailed(t *testing.T) {
	a := newTestAggregator(t)

	resp := a.Merge(testQuery, nil)

	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.Empty(t, resp.Sections)
}

// ==========================
// Status Monotonicity
// ==========================

func TestAggregator_StatusMonotonicity(t *testing.T) {
	a := newTestAggregator(t)

	// Any success forbids Failed.
	withSuccess := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityStock, "quote"),
		timeout(models.CapabilityWebSearch),
		timeout(models.CapabilityPortfolio),
	})
	assert.NotEqual(t, models.StatusFailed, withSuccess.Status)

	// Zero successes forbid Complete.
	withoutSuccess := a.Merge(testQuery, []models.ProviderResult{
		timeout(models.CapabilityStock),
	})
	assert.NotEqual(t, models.StatusComplete, withoutSuccess.Status)
}

// ==========================
// Ordering Tests
// ==========================

func TestAggregator_SectionsFollowMergePriority(t *testing.T) {
	a := newTestAggregator(t)

	// Results arrive in dispatch-completion order; sections must not.
	resp := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityEmail, "email sent"),
		success(models.CapabilityWebSearch, "latest headlines"),
		success(models.CapabilityStock, "quote"),
		success(models.CapabilityPortfolio, "holdings"),
		success(models.CapabilityRetrieval, "filings"),
	})

	require.Len(t, resp.Sections, 5)
	var caps []models.Capability
	for _, s := range resp.Sections {
		caps = append(caps, s.Capability)
	}
	assert.Equal(t, []models.Capability{
		models.CapabilityRetrieval,
		models.CapabilityPortfolio,
		models.CapabilityStock,
		models.CapabilityWebSearch,
		models.CapabilityEmail,
	}, caps)
}

// ==========================
// Deduplication Tests
// ==========================

func TestAggregator_DuplicateContentDropped(t *testing.T) {
	a := newTestAggregator(t)

	shared := "NVIDIA Corporation designs graphics processors and accelerated computing platforms"
	resp := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityRetrieval, shared),
		success(models.CapabilityWebSearch, "  nvidia   corporation DESIGNS graphics processors and accelerated computing platforms, shares rose"),
	})

	// Same normalized 50-char prefix: the lower-priority section is dropped,
	// but the response is still complete because both providers succeeded.
	assert.Equal(t, models.StatusComplete, resp.Status)
	require.Len(t, resp.Sections, 1)
	assert.Equal(t, models.CapabilityRetrieval, resp.Sections[0].Capability)
}

func TestAggregator_DistinctContentKept(t *testing.T) {
	a := newTestAggregator(t)

	resp := a.Merge(testQuery, []models.ProviderResult{
		success(models.CapabilityRetrieval, "annual report highlights"),
		success(models.CapabilityWebSearch, "market reacted to earnings"),
	})

	assert.Len(t, resp.Sections, 2)
}
