// Package scheduler fans an intent out to capability providers and joins
// the results. The join barrier is exact: every requested capability gets
// exactly one ProviderResult, synthesized for timeouts and cancellation,
// and total wall-clock time is bounded by the largest per-capability
// deadline rather than their sum.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/models"
	"finassist/internal/orchestrator/cache"
)

// Provider is one capability backend. Invoke must honor ctx cancellation;
// the scheduler enforces the deadline regardless, so a provider that blocks
// past its budget only leaks a goroutine until it returns.
type Provider interface {
	Capability() models.Capability
	Invoke(ctx context.Context, params map[string]string) (*models.Payload, error)
}

type Config struct {
	// Deadlines holds the per-capability call budget. Capabilities without
	// an entry use DefaultDeadline.
	Deadlines       map[models.Capability]time.Duration
	DefaultDeadline time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Deadlines:       map[models.Capability]time.Duration{},
		DefaultDeadline: 8 * time.Second,
	}
}

type Scheduler struct {
	config    *Config
	providers map[models.Capability]Provider
	cache     *cache.Cache
	logger    logger.Logger
}

func New(config *Config, responseCache *cache.Cache, log logger.Logger) *Scheduler {
	return &Scheduler{
		config:    config,
		providers: make(map[models.Capability]Provider),
		cache:     responseCache,
		logger: log.With(map[string]interface{}{
			"component": "dispatch-scheduler",
		}),
	}
}

// Register binds a provider to its capability tag. Providers are resolved
// at startup; registering twice replaces the earlier binding.
func (s *Scheduler) Register(p Provider) {
	s.providers[p.Capability()] = p
}

// Registered reports whether a provider is bound for the capability.
func (s *Scheduler) Registered(capability models.Capability) bool {
	_, ok := s.providers[capability]
	return ok
}

// Dispatch runs every capability request of the intent concurrently and
// returns one result per request, index-aligned with intent.Requests.
// Cache hits short-circuit dispatch entirely; live successes are written
// back to the cache after the join.
func (s *Scheduler) Dispatch(ctx context.Context, query models.Query, intent models.Intent) []models.ProviderResult {
	results := make([]models.ProviderResult, len(intent.Requests))

	var wg sync.WaitGroup
	for i, req := range intent.Requests {
		if cached, hit := s.cache.Lookup(ctx, req.Capability, req.Params); hit {
			results[i] = *cached
			s.logger.Debug("cache hit, provider skipped", map[string]interface{}{
				"queryId":    query.ID,
				"capability": string(req.Capability),
			})
			continue
		}

		wg.Add(1)
		go func(i int, req models.CapabilityRequest) {
			defer wg.Done()
			results[i] = s.dispatchOne(ctx, query.ID, req)
		}(i, req)
	}
	wg.Wait()

	if ctx.Err() == nil {
		for i := range results {
			if results[i].Provenance == models.ProvenanceLive && results[i].Status == models.ResultSuccess {
				s.cache.Store(ctx, intent.Requests[i].Capability, intent.Requests[i].Params, &results[i])
			}
		}
	}

	return results
}

// dispatchOne invokes a single provider under its deadline. The provider
// runs in an inner goroutine so a call that never returns still yields a
// synthetic result when the deadline fires.
func (s *Scheduler) dispatchOne(ctx context.Context, queryID string, req models.CapabilityRequest) models.ProviderResult {
	capability := req.Capability

	provider, ok := s.providers[capability]
	if !ok {
		stdErr := stderrors.NewProviderUnknownError(string(capability))
		metrics.ProviderCallsFailed.WithLabelValues(string(capability), string(stdErr.Code)).Inc()
		return models.ProviderResult{
			Capability:  capability,
			Status:      models.ResultFailure,
			FailureKind: string(stdErr.Code),
			Message:     stdErr.Message,
			Provenance:  models.ProvenanceDegraded,
		}
	}

	deadline := s.deadlineFor(capability)
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	metrics.ProviderCallsActive.WithLabelValues(string(capability)).Inc()
	defer metrics.ProviderCallsActive.WithLabelValues(string(capability)).Dec()

	type outcome struct {
		payload *models.Payload
		err     error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		payload, err := provider.Invoke(callCtx, req.Params)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		elapsed := time.Since(start)
		if out.err != nil {
			return s.failureResult(queryID, capability, out.err, elapsed)
		}
		metrics.ProviderCallsCompleted.WithLabelValues(string(capability)).Inc()
		metrics.ProviderCallDuration.WithLabelValues(string(capability)).Observe(elapsed.Seconds())
		return models.ProviderResult{
			Capability: capability,
			Status:     models.ResultSuccess,
			Payload:    out.payload,
			Latency:    elapsed,
			Provenance: models.ProvenanceLive,
		}

	case <-callCtx.Done():
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			// Parent cancelled: the caller went away, not the provider.
			stdErr := stderrors.NewRequestCancelledError(queryID)
			metrics.ProviderCallsFailed.WithLabelValues(string(capability), string(stdErr.Code)).Inc()
			return models.ProviderResult{
				Capability:  capability,
				Status:      models.ResultFailure,
				FailureKind: string(stdErr.Code),
				Message:     stdErr.Message,
				Latency:     elapsed,
				Provenance:  models.ProvenanceDegraded,
			}
		}

		stdErr := stderrors.NewProviderTimeoutError(string(capability))
		s.logger.Warn("provider deadline exceeded", map[string]interface{}{
			"queryId":    queryID,
			"capability": string(capability),
			"deadline":   deadline.String(),
		})
		metrics.ProviderCallsFailed.WithLabelValues(string(capability), string(stdErr.Code)).Inc()
		return models.ProviderResult{
			Capability:  capability,
			Status:      models.ResultTimeout,
			FailureKind: string(stdErr.Code),
			Message:     stdErr.Message,
			Latency:     elapsed,
			Provenance:  models.ProvenanceDegraded,
		}
	}
}

func (s *Scheduler) failureResult(queryID string, capability models.Capability, err error, elapsed time.Duration) models.ProviderResult {
	// Provider errors racing the deadline still count as timeouts.
	if errors.Is(err, context.DeadlineExceeded) {
		stdErr := stderrors.NewProviderTimeoutError(string(capability))
		metrics.ProviderCallsFailed.WithLabelValues(string(capability), string(stdErr.Code)).Inc()
		return models.ProviderResult{
			Capability:  capability,
			Status:      models.ResultTimeout,
			FailureKind: string(stdErr.Code),
			Message:     stdErr.Message,
			Latency:     elapsed,
			Provenance:  models.ProvenanceDegraded,
		}
	}

	stdErr := stderrors.Normalize(err)
	s.logger.Warn("provider call failed", map[string]interface{}{
		"queryId":    queryID,
		"capability": string(capability),
		"errorCode":  string(stdErr.Code),
		"error":      err.Error(),
	})
	metrics.ProviderCallsFailed.WithLabelValues(string(capability), string(stdErr.Code)).Inc()
	return models.ProviderResult{
		Capability:  capability,
		Status:      models.ResultFailure,
		FailureKind: string(stdErr.Code),
		Message:     stdErr.Message,
		Latency:     elapsed,
		Provenance:  models.ProvenanceDegraded,
	}
}

func (s *Scheduler) deadlineFor(capability models.Capability) time.Duration {
	if d, ok := s.config.Deadlines[capability]; ok && d > 0 {
		return d
	}
	return s.config.DefaultDeadline
}
