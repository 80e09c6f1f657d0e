// Package orchestrator runs the classify, dispatch, aggregate pipeline for
// one query. It owns the overall request budget; per-capability deadlines
// live in the scheduler.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	stderrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/common/observability"
	"finassist/internal/models"
	"finassist/internal/orchestrator/aggregate"
	"finassist/internal/orchestrator/intent"
	"finassist/internal/orchestrator/language"
	"finassist/internal/orchestrator/scheduler"
)

type Config struct {
	// RequestBudget caps the whole pipeline for one query. Zero disables
	// the cap and leaves only per-capability deadlines.
	RequestBudget time.Duration
}

type Orchestrator struct {
	config     *Config
	classifier *intent.Classifier
	scheduler  *scheduler.Scheduler
	aggregator *aggregate.Aggregator
	detector   *language.Detector
	obs        *observability.Observability
	logger     logger.Logger
}

func New(
	config *Config,
	classifier *intent.Classifier,
	sched *scheduler.Scheduler,
	aggregator *aggregate.Aggregator,
	detector *language.Detector,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:     config,
		classifier: classifier,
		scheduler:  sched,
		aggregator: aggregator,
		detector:   detector,
		obs:        obs,
		logger: log.With(map[string]interface{}{
			"component": "orchestrator",
		}),
	}
}

// Handle runs one query through the pipeline. A nil response with a
// REQUEST_CANCELLED error means the caller went away and nothing should be
// written back.
func (o *Orchestrator) Handle(ctx context.Context, query models.Query) (*models.Response, error) {
	start := time.Now()

	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	if query.ReceivedAt.IsZero() {
		query.ReceivedAt = start
	}
	if query.Language == "" {
		query.Language = o.detector.Detect(query.Question).Language
	}

	o.logger.Info("query received", map[string]interface{}{
		"queryId":  query.ID,
		"language": query.Language,
	})

	runCtx := ctx
	if o.config.RequestBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.config.RequestBudget)
		defer cancel()
	}

	queryIntent := o.classifier.Classify(query)
	results := o.scheduler.Dispatch(runCtx, query, queryIntent)

	// Client disconnect: drop the work, never produce a response.
	if ctx.Err() != nil {
		o.logger.Warn("query cancelled by caller", map[string]interface{}{
			"queryId": query.ID,
		})
		o.recordRequest(context.Background(), "cancelled", time.Since(start))
		return nil, stderrors.NewRequestCancelledError(query.ID)
	}

	resp := o.aggregator.Merge(query, results)
	resp.Elapsed = time.Since(start)

	o.recordRequest(runCtx, string(resp.Status), resp.Elapsed)
	o.logger.Info("query handled", map[string]interface{}{
		"queryId":  query.ID,
		"status":   string(resp.Status),
		"fallback": queryIntent.Fallback,
		"elapsed":  resp.Elapsed.String(),
	})

	return resp, nil
}

func (o *Orchestrator) recordRequest(ctx context.Context, status string, elapsed time.Duration) {
	metrics.RequestsTotal.WithLabelValues(status).Inc()
	metrics.RequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if o.obs != nil {
		o.obs.RecordRequestProcessed(ctx, status)
		o.obs.RecordRequestDuration(ctx, elapsed, status)
	}
}
