package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/config"
	dbRedis "github.com/kailas-cloud/newsflow/internal/db/redis"
	"github.com/kailas-cloud/newsflow/internal/domain"
	logpkg "github.com/kailas-cloud/newsflow/internal/logger"
	"github.com/kailas-cloud/newsflow/internal/metrics"
	dedupRepo "github.com/kailas-cloud/newsflow/internal/repository/dedup"
	"github.com/kailas-cloud/newsflow/internal/repository/embcache"
	eventsRepo "github.com/kailas-cloud/newsflow/internal/repository/events"
	reasoningRepo "github.com/kailas-cloud/newsflow/internal/repository/reasoning"
	requeueRepo "github.com/kailas-cloud/newsflow/internal/repository/requeue"
	summaryRepo "github.com/kailas-cloud/newsflow/internal/repository/summary"
	"github.com/kailas-cloud/newsflow/internal/retry"
	chiTransport "github.com/kailas-cloud/newsflow/internal/transport/chi"
	"github.com/kailas-cloud/newsflow/internal/transport/eventregistry"
	kafkaSource "github.com/kailas-cloud/newsflow/internal/transport/kafka"
	openaiProv "github.com/kailas-cloud/newsflow/internal/transport/openai"
	dedupuc "github.com/kailas-cloud/newsflow/internal/usecase/dedup"
	"github.com/kailas-cloud/newsflow/internal/usecase/ingest"
	"github.com/kailas-cloud/newsflow/internal/usecase/pipeline"
	"github.com/kailas-cloud/newsflow/internal/usecase/relevance"
	"github.com/kailas-cloud/newsflow/internal/usecase/summarize"
	tracepkg "github.com/kailas-cloud/newsflow/internal/usecase/trace"
	"github.com/kailas-cloud/newsflow/internal/version"
)

const (
	embedCacheTTL     = 24 * time.Hour
	reasonTemperature = 0.3
	reasonMaxTokens   = 1024
	articleChanBuffer = 64
	topicEmbedTimeout = 2 * time.Minute
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsflow pipeline",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("ingest_driver", cfg.Ingest.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int("topics", len(cfg.Topics)),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	metrics.RegisterProviderMetrics()

	// Build provider clients — composition root
	provCfg := &openaiProv.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Logger:  logger,
	}
	baseEmbedder := openaiProv.NewEmbedder(provCfg, cfg.Provider.EmbeddingModel, cfg.Provider.Dimensions)
	embedder := embcache.New(baseEmbedder, store, embedCacheTTL, logger)
	reasoner := openaiProv.NewReasoner(provCfg, cfg.Provider.ReasoningModel, reasonTemperature, reasonMaxTokens)
	logger.Info("Provider clients created",
		zap.String("provider", cfg.Provider.Name),
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
		zap.Int("dimensions", cfg.Provider.Dimensions),
		zap.String("reasoning_model", cfg.Provider.ReasoningModel),
	)

	// Topic vectors are embedded once at startup; a provider outage here is
	// fatal because relevance scoring cannot run without them.
	topics, err := buildTopics(ctx, embedder, cfg.Topics)
	if err != nil {
		logger.Fatal("Failed to embed topic queries", zap.Error(err))
	}

	// Create repositories
	dedups := dedupRepo.New(store, cfg.Pipeline.RecentWindow)
	summaries := summaryRepo.New(store, cfg.Pipeline.RecentWindow)
	traces := reasoningRepo.New(store)
	events := eventsRepo.New(store, cfg.Pipeline.EventRetention)
	requeue := requeueRepo.New(store)

	// Async event recorder — flushed and closed on shutdown.
	recorder := tracepkg.New(events, cfg.Pipeline.TraceBufferSize, logger)

	policy := retry.Policy{
		MaxAttempts: cfg.Pipeline.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.Pipeline.RetryBaseMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Pipeline.RetryMaxMs) * time.Millisecond,
	}

	// Create use case services
	classifier := relevance.New(topics)
	deduper := dedupuc.New(dedups, summaries, cfg.Pipeline.NearDupThreshold)
	summarizer := summarize.New(reasoner, traces, cfg.Pipeline.MaxReasonIterations, policy, logger)

	pipe := pipeline.New(pipeline.Config{
		Embedder:   embedder,
		Classifier: classifier,
		Deduper:    deduper,
		Summarizer: summarizer,
		Summaries:  summaries,
		Requeue:    requeue,
		Recorder:   recorder,
		Timeout:    time.Duration(cfg.Pipeline.ArticleTimeoutSec) * time.Second,
		Policy:     policy,
		Logger:     logger,
	})
	pool := pipeline.NewPool(pipe, cfg.Pipeline.Concurrency, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	articles := make(chan domain.Article, articleChanBuffer)

	// Article source
	switch cfg.Ingest.Driver {
	case "", "poll":
		source := eventregistry.New(&eventregistry.Config{
			Endpoint: cfg.Ingest.EventRegistry.Endpoint,
			APIKey:   cfg.Ingest.EventRegistry.APIKey,
			Keyword:  cfg.Ingest.EventRegistry.Keyword,
			PageSize: cfg.Ingest.EventRegistry.PageSize,
			Logger:   logger,
		})
		ing := ingest.New(ingest.Config{
			Source:       source,
			Requeue:      requeue,
			Interval:     time.Duration(cfg.Ingest.PollIntervalSec) * time.Second,
			Lookback:     time.Duration(cfg.Ingest.LookbackSec) * time.Second,
			RequeueBatch: cfg.Ingest.RequeueBatch,
			Logger:       logger,
		})
		go func() {
			defer close(articles)
			if err := ing.Run(runCtx, articles); err != nil {
				logger.Error("Ingest loop stopped", zap.Error(err))
			}
		}()
	case "kafka":
		source := kafkaSource.New(&kafkaSource.Config{
			Brokers: cfg.Ingest.Kafka.Brokers,
			Topic:   cfg.Ingest.Kafka.Topic,
			GroupID: cfg.Ingest.Kafka.GroupID,
			Logger:  logger,
		})
		defer func() { _ = source.Close() }()
		go func() {
			defer close(articles)
			if err := source.Run(runCtx, articles); err != nil {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	default:
		logger.Fatal("Unknown ingest driver", zap.String("driver", cfg.Ingest.Driver))
	}

	// Worker pool; a configuration error aborts the whole run.
	poolDone := make(chan error, 1)
	go func() {
		poolDone <- pool.Run(runCtx, articles)
	}()

	// HTTP read API
	server := chiTransport.NewServer(summaries, events, store, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	var poolErr error
	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		// workers may still finish (and requeue) their current articles
		poolErr = <-poolDone
	case poolErr = <-poolDone:
		cancel()
	}
	if poolErr != nil {
		logger.Error("Pipeline aborted", zap.Error(poolErr))
	} else {
		logger.Info("Pipeline drained")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Flush buffered stage events before the store goes away.
	if err := recorder.Close(); err != nil {
		logger.Error("Error flushing trace recorder", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildTopics embeds each configured topic query and assembles the validated
// topic set used for relevance scoring.
func buildTopics(ctx context.Context, embedder domain.Embedder, configs []config.TopicConfig) (domain.TopicSet, error) {
	ctx, cancel := context.WithTimeout(ctx, topicEmbedTimeout)
	defer cancel()

	topics := make([]domain.Topic, 0, len(configs))
	for _, tc := range configs {
		res, err := embedder.Embed(ctx, tc.Query)
		if err != nil {
			return domain.TopicSet{}, fmt.Errorf("embed topic %q: %w", tc.Name, err)
		}
		topic, err := domain.NewTopic(tc.Name, tc.Threshold, res.Embedding)
		if err != nil {
			return domain.TopicSet{}, fmt.Errorf("topic %q: %w", tc.Name, err)
		}
		topics = append(topics, topic)
	}
	return domain.NewTopicSet(topics)
}
