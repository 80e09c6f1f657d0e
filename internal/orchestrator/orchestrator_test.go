// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/models"
	"finassist/internal/orchestrator/aggregate"
	"finassist/internal/orchestrator/cache"
	"finassist/internal/orchestrator/intent"
	"finassist/internal/orchestrator/language"
	"finassist/internal/orchestrator/scheduler"
)

// ==========================
// Fake Provider
// ==========================

type fakeProvider struct {
	capability models.Capability
	content    string
	// block, when non-nil, makes Invoke hang until the channel closes.
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeProvider) Capability() models.Capability { return f.capability }

func (f *fakeProvider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return &models.Payload{Content: f.content}, nil
}

// ==========================
// Test Helper Functions
// ==========================

type testHarness struct {
	orch  *Orchestrator
	sched *scheduler.Scheduler
}

func newHarness(t *testing.T, withCache bool, schedCfg *scheduler.Config) *testHarness {
	log := logger.NewTestLogger(t)

	c := cache.NewDisabled(log)
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		c = cache.New(client, nil, log)
	}

	if schedCfg == nil {
		schedCfg = scheduler.DefaultConfig()
	}
	sched := scheduler.New(schedCfg, c, log)

	orch := New(
		&Config{RequestBudget: 10 * time.Second},
		intent.NewClassifier(intent.DefaultConfig(), log),
		sched,
		aggregate.New(log),
		language.NewDetector(),
		nil,
		log,
	)
	return &testHarness{orch: orch, sched: sched}
}

// ==========================
// Scenario Tests
// ==========================

func TestOrchestrator_StockQuoteScenario(t *testing.T) {
	h := newHarness(t, false, nil)
	h.sched.Register(&fakeProvider{
		capability: models.CapabilityStock,
		content:    "NVDA: $875.30",
	})

	resp, err := h.orch.Handle(context.Background(), models.Query{Question: "NVDA stock quote"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusComplete, resp.Status)
	require.Len(t, resp.Sections, 1)
	assert.Equal(t, models.CapabilityStock, resp.Sections[0].Capability)
	assert.Equal(t, "NVDA: $875.30", resp.Sections[0].Content)
	assert.Equal(t, "english", resp.Language)
	assert.NotEmpty(t, resp.RequestID)
	assert.Greater(t, resp.Elapsed, time.Duration(0))
}

func TestOrchestrator_RepeatWithinTTLHitsCache(t *testing.T) {
	h := newHarness(t, true, nil)
	provider := &fakeProvider{
		capability: models.CapabilityStock,
		content:    "NVDA: $875.30",
	}
	h.sched.Register(provider)

	query := models.Query{Question: "NVDA stock quote"}

	first, err := h.orch.Handle(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceLive, first.Sections[0].Provenance)

	second, err := h.orch.Handle(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, second.Status)
	assert.Equal(t, models.ProvenanceCache, second.Sections[0].Provenance)

	assert.Equal(t, int32(1), provider.calls.Load(), "repeat within TTL must not invoke the provider")
}

func TestOrchestrator_PartialDegradationScenario(t *testing.T) {
	schedCfg := scheduler.DefaultConfig()
	schedCfg.DefaultDeadline = 150 * time.Millisecond
	h := newHarness(t, false, schedCfg)

	blocked := make(chan struct{})
	defer close(blocked)

	h.sched.Register(&fakeProvider{
		capability: models.CapabilityRetrieval,
		content:    "the annual report explains the dividend policy",
	})
	h.sched.Register(&fakeProvider{
		capability: models.CapabilityPortfolio,
		block:      blocked,
	})

	resp, err := h.orch.Handle(context.Background(), models.Query{
		Question: "Explain the dividend policy and how my portfolio holdings are allocated",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPartial, resp.Status)

	var retrievalSection, portfolioSection *models.Section
	for i := range resp.Sections {
		switch resp.Sections[i].Capability {
		case models.CapabilityRetrieval:
			retrievalSection = &resp.Sections[i]
		case models.CapabilityPortfolio:
			portfolioSection = &resp.Sections[i]
		}
	}

	require.NotNil(t, retrievalSection)
	assert.NotEmpty(t, retrievalSection.Content)

	require.NotNil(t, portfolioSection)
	assert.Equal(t, models.ProvenanceDegraded, portfolioSection.Provenance)
	assert.Equal(t, string(stderrors.ErrCodeProviderTimeout), portfolioSection.FailureKind)
}

func TestOrchestrator_ClientDisconnectProducesNoResponse(t *testing.T) {
	h := newHarness(t, false, nil)

	blocked := make(chan struct{})
	defer close(blocked)

	h.sched.Register(&fakeProvider{
		capability: models.CapabilityStock,
		block:      blocked,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	resp, err := h.orch.Handle(ctx, models.Query{Question: "NVDA stock quote"})

	assert.Nil(t, resp, "cancelled request must not produce a response")
	require.Error(t, err)
	stdErr := stderrors.Normalize(err)
	assert.Equal(t, stderrors.ErrCodeRequestCancelled, stdErr.Code)
}

func TestOrchestrator_FallbackStillAnswers(t *testing.T) {
	h := newHarness(t, false, nil)
	h.sched.Register(&fakeProvider{
		capability: models.CapabilityRetrieval,
		content:    "closest documents",
	})

	resp, err := h.orch.Handle(context.Background(), models.Query{Question: "hola amigo"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusComplete, resp.Status)
	require.Len(t, resp.Sections, 1)
	assert.Equal(t, models.CapabilityRetrieval, resp.Sections[0].Capability)
}

func TestOrchestrator_PreservesCallerLanguage(t *testing.T) {
	h := newHarness(t, false, nil)
	h.sched.Register(&fakeProvider{
		capability: models.CapabilityStock,
		content:    "quote",
	})

	resp, err := h.orch.Handle(context.Background(), models.Query{
		Question: "NVDA stock quote",
		Language: "french",
	})
	require.NoError(t, err)
	assert.Equal(t, "french", resp.Language)
}
