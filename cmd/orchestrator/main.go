// cmd/orchestrator/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finassist/internal/common/aws"
	"finassist/internal/common/config"
	"finassist/internal/common/database"
	"finassist/internal/common/logger"
	"finassist/internal/common/observability"
	"finassist/internal/models"
	"finassist/internal/orchestrator"
	"finassist/internal/orchestrator/aggregate"
	"finassist/internal/orchestrator/cache"
	"finassist/internal/orchestrator/intent"
	"finassist/internal/orchestrator/language"
	"finassist/internal/orchestrator/scheduler"
	"finassist/internal/providers/email"
	"finassist/internal/providers/portfolio"
	"finassist/internal/providers/retrieval"
	"finassist/internal/providers/stock"
	"finassist/internal/providers/websearch"
	"finassist/internal/transport/httpapi"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting orchestrator...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("orchestrator")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return esClient.Ping(pingCtx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Response Cache ---
	ttls := cache.DefaultTTLs()
	for name, capCfg := range cfg.Capabilities {
		capability := models.Capability(name)
		if !capability.Valid() {
			continue
		}
		ttls[capability] = config.GetDuration(capCfg.CacheTTL)
	}
	responseCache := cache.New(redis.Client, ttls, log)

	// --- Dispatch Scheduler + Providers ---
	schedCfg := &scheduler.Config{
		Deadlines:       map[models.Capability]time.Duration{},
		DefaultDeadline: config.GetDuration(cfg.Orchestrator.DefaultDeadline),
	}
	for name, capCfg := range cfg.Capabilities {
		capability := models.Capability(name)
		if capability.Valid() && capCfg.Deadline > 0 {
			schedCfg.Deadlines[capability] = config.GetDuration(capCfg.Deadline)
		}
	}
	sched := scheduler.New(schedCfg, responseCache, log)

	if config.IsCapabilityEnabled(cfg, string(models.CapabilityStock)) {
		sched.Register(stock.NewProvider(
			&stock.Config{
				BaseURL:    cfg.APIs.MarketData.BaseURL,
				APIKey:     cfg.APIs.MarketData.APIKey,
				Timeout:    config.GetDuration(cfg.APIs.MarketData.Timeout),
				MaxRetries: config.GetCapabilityConfig(cfg, string(models.CapabilityStock)).MaxRetries,
			},
			log,
		))
	}

	if config.IsCapabilityEnabled(cfg, string(models.CapabilityRetrieval)) {
		retrievalCfg := retrieval.DefaultConfig()
		retrievalCfg.Index = esClient.Index
		sched.Register(retrieval.NewProvider(retrievalCfg, esClient.Client, log))
	}

	if config.IsCapabilityEnabled(cfg, string(models.CapabilityPortfolio)) {
		sched.Register(portfolio.NewProvider(portfolio.DefaultConfig(), pg.DB, log))
	}

	if config.IsCapabilityEnabled(cfg, string(models.CapabilityWebSearch)) {
		wsCfg := websearch.DefaultConfig()
		wsCfg.BaseURL = cfg.APIs.WebSearch.BaseURL
		wsCfg.APIKey = cfg.APIs.WebSearch.APIKey
		wsCfg.EngineID = cfg.APIs.WebSearch.EngineID
		wsCfg.Timeout = config.GetDuration(cfg.APIs.WebSearch.Timeout)
		sched.Register(websearch.NewProvider(wsCfg, log))
	}

	if config.IsCapabilityEnabled(cfg, string(models.CapabilityEmail)) && cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailCfg := email.DefaultConfig()
		emailCfg.FromEmail = cfg.Integrations.AWS.SES.FromEmail
		sched.Register(email.NewProvider(emailCfg, sesClient, log))
	}

	zapLog.Info("Providers registered", zap.Int("count", len(cfg.Capabilities)))

	// --- Intent Classifier ---
	classifierCfg := &intent.Config{
		ConfidenceThreshold: cfg.Orchestrator.ConfidenceThreshold,
		MultiIntentRelax:    cfg.Orchestrator.MultiIntentRelax,
		Fallback:            models.Capability(cfg.Orchestrator.FallbackCapability),
		MaxFanout:           cfg.Orchestrator.MaxFanout,
		Disabled:            map[models.Capability]bool{},
	}
	for _, capability := range models.AllCapabilities {
		if !config.IsCapabilityEnabled(cfg, string(capability)) {
			classifierCfg.Disabled[capability] = true
		}
	}

	// --- Orchestrator ---
	orch := orchestrator.New(
		&orchestrator.Config{
			RequestBudget: config.GetDuration(cfg.Orchestrator.RequestBudget),
		},
		intent.NewClassifier(classifierCfg, log),
		sched,
		aggregate.New(log),
		language.NewDetector(),
		obs,
		log,
	)

	// --- HTTP API ---
	checks := map[string]httpapi.HealthCheck{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
		"elasticsearch": func(ctx context.Context) error {
			return esClient.Info(ctx)
		},
	}
	server := httpapi.NewServer(cfg.Server, orch, responseCache, checks, log)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("Orchestrator stopped gracefully")
}
