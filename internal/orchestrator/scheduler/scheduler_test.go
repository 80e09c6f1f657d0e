// internal/orchestrator/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
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
	"finassist/internal/orchestrator/cache"
)

// ==========================
// Fake Provider
// ==========================

type fakeProvider struct {
	capability models.Capability
	payload    *models.Payload
	err        error
	delay      time.Duration
	// block, when non-nil, makes Invoke hang until the channel closes,
	// ignoring ctx entirely. Simulates a provider that never returns.
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeProvider) Capability() models.Capability { return f.capability }

func (f *fakeProvider) Invoke(ctx context.Context, params map[string]string) (*models.Payload, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
		return nil, errors.New("released")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.payload, f.err
}

// ==========================
// Test Helper Functions
// ==========================

func newTestScheduler(t *testing.T, cfg *Config) *Scheduler {
	return New(cfg, cache.NewDisabled(logger.NewTestLogger(t)), logger.NewTestLogger(t))
}

func newCachedScheduler(t *testing.T, cfg *Config) (*Scheduler, *cache.Cache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := cache.New(client, nil, logger.NewTestLogger(t))
	return New(cfg, c, logger.NewTestLogger(t)), c
}

func intentFor(caps ...models.Capability) models.Intent {
	var reqs []models.CapabilityRequest
	for _, c := range caps {
		reqs = append(reqs, models.CapabilityRequest{
			Capability: c,
			Params:     map[string]string{"query": "test"},
			Confidence: 0.8,
		})
	}
	return models.Intent{Requests: reqs}
}

var testQuery = models.Query{ID: "q-1", Question: "test"}

// ==========================
// Join Barrier Tests
// ==========================

func TestScheduler_BarrierReturnsExactlyOneResultPerCapability(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultDeadline = 200 * time.Millisecond
	s := newTestScheduler(t, cfg)

	blocked := make(chan struct{})
	defer close(blocked)

	s.Register(&fakeProvider{
		capability: models.CapabilityRetrieval,
		payload:    &models.Payload{Content: "doc answer"},
	})
	s.Register(&fakeProvider{
		capability: models.CapabilityStock,
		err:        stderrors.NewUpstreamUnavailableError("market-data", errors.New("boom")),
	})
	s.Register(&fakeProvider{
		capability: models.CapabilityWebSearch,
		block:      blocked,
	})

	results := s.Dispatch(context.Background(), testQuery, intentFor(
		models.CapabilityRetrieval,
		models.CapabilityStock,
		models.CapabilityWebSearch,
	))

	require.Len(t, results, 3)
	assert.Equal(t, models.CapabilityRetrieval, results[0].Capability)
	assert.Equal(t, models.ResultSuccess, results[0].Status)
	assert.Equal(t, "doc answer", results[0].Payload.Content)
	assert.Equal(t, models.ProvenanceLive, results[0].Provenance)

	assert.Equal(t, models.CapabilityStock, results[1].Capability)
	assert.Equal(t, models.ResultFailure, results[1].Status)
	assert.Equal(t, string(stderrors.ErrCodeUpstreamUnavailable), results[1].FailureKind)
	assert.Equal(t, models.ProvenanceDegraded, results[1].Provenance)

	assert.Equal(t, models.CapabilityWebSearch, results[2].Capability)
	assert.Equal(t, models.ResultTimeout, results[2].Status)
	assert.Equal(t, string(stderrors.ErrCodeProviderTimeout), results[2].FailureKind)
}

func TestScheduler_UnknownCapability(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())

	results := s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityPortfolio))

	require.Len(t, results, 1)
	assert.Equal(t, models.ResultFailure, results[0].Status)
	assert.Equal(t, string(stderrors.ErrCodeProviderUnknown), results[0].FailureKind)
}

// ==========================
// Deadline Tests
// ==========================

func TestScheduler_TimeoutIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultDeadline = 150 * time.Millisecond
	s := newTestScheduler(t, cfg)

	blocked := make(chan struct{})
	defer close(blocked)

	s.Register(&fakeProvider{capability: models.CapabilityRetrieval, block: blocked})
	s.Register(&fakeProvider{capability: models.CapabilityWebSearch, block: blocked})

	start := time.Now()
	results := s.Dispatch(context.Background(), testQuery, intentFor(
		models.CapabilityRetrieval,
		models.CapabilityWebSearch,
	))
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.ResultTimeout, r.Status)
	}

	// Bounded by the max deadline plus overhead, not the sum of deadlines.
	assert.Less(t, elapsed, 2*cfg.DefaultDeadline,
		"join must run providers concurrently")
}

func TestScheduler_PerCapabilityDeadlineOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultDeadline = 5 * time.Second
	cfg.Deadlines[models.CapabilityStock] = 50 * time.Millisecond
	s := newTestScheduler(t, cfg)

	s.Register(&fakeProvider{
		capability: models.CapabilityStock,
		delay:      300 * time.Millisecond,
		payload:    &models.Payload{Content: "late"},
	})

	start := time.Now()
	results := s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	assert.Equal(t, models.ResultTimeout, results[0].Status)
	assert.Less(t, elapsed, 250*time.Millisecond)
}

// ==========================
// Cancellation Tests
// ==========================

func TestScheduler_ParentCancellationMarksAllOutstanding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultDeadline = 5 * time.Second
	s := newTestScheduler(t, cfg)

	blocked := make(chan struct{})
	defer close(blocked)

	s.Register(&fakeProvider{capability: models.CapabilityRetrieval, block: blocked})
	s.Register(&fakeProvider{capability: models.CapabilityPortfolio, block: blocked})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	results := s.Dispatch(ctx, testQuery, intentFor(
		models.CapabilityRetrieval,
		models.CapabilityPortfolio,
	))

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, models.ResultFailure, r.Status)
		assert.Equal(t, string(stderrors.ErrCodeRequestCancelled), r.FailureKind)
	}
}

// ==========================
// Cache Interaction Tests
// ==========================

func TestScheduler_CacheHitSkipsProvider(t *testing.T) {
	s, c := newCachedScheduler(t, DefaultConfig())

	provider := &fakeProvider{
		capability: models.CapabilityStock,
		payload:    &models.Payload{Content: "live quote"},
	}
	s.Register(provider)

	params := map[string]string{"query": "test"}
	c.Store(context.Background(), models.CapabilityStock, params, &models.ProviderResult{
		Capability: models.CapabilityStock,
		Status:     models.ResultSuccess,
		Payload:    &models.Payload{Content: "cached quote"},
		Provenance: models.ProvenanceLive,
	})

	results := s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))

	require.Len(t, results, 1)
	assert.Equal(t, models.ResultSuccess, results[0].Status)
	assert.Equal(t, "cached quote", results[0].Payload.Content)
	assert.Equal(t, models.ProvenanceCache, results[0].Provenance)
	assert.Equal(t, int32(0), provider.calls.Load(), "provider must not be invoked on cache hit")
}

func TestScheduler_LiveSuccessStoredForNextDispatch(t *testing.T) {
	s, _ := newCachedScheduler(t, DefaultConfig())

	provider := &fakeProvider{
		capability: models.CapabilityStock,
		payload:    &models.Payload{Content: "quote"},
	}
	s.Register(provider)

	first := s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))
	require.Equal(t, models.ProvenanceLive, first[0].Provenance)

	second := s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))
	require.Equal(t, models.ProvenanceCache, second[0].Provenance)

	assert.Equal(t, int32(1), provider.calls.Load(), "second dispatch must be served from cache")
}

func TestScheduler_FailuresNeverCached(t *testing.T) {
	s, _ := newCachedScheduler(t, DefaultConfig())

	provider := &fakeProvider{
		capability: models.CapabilityStock,
		err:        errors.New("flaky"),
	}
	s.Register(provider)

	s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))
	s.Dispatch(context.Background(), testQuery, intentFor(models.CapabilityStock))

	assert.Equal(t, int32(2), provider.calls.Load(), "failures must not short-circuit later dispatches")
}
