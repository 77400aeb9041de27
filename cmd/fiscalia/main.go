package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/config"
	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	logpkg "github.com/fiscalia-cloud/fiscalia/internal/logger"
	"github.com/fiscalia-cloud/fiscalia/internal/metrics"
	"github.com/fiscalia-cloud/fiscalia/internal/repository/docstore"
	"github.com/fiscalia-cloud/fiscalia/internal/repository/embcache"
	chiTransport "github.com/fiscalia-cloud/fiscalia/internal/transport/chi"
	openaiTransport "github.com/fiscalia-cloud/fiscalia/internal/transport/openai"
	"github.com/fiscalia-cloud/fiscalia/internal/usecase/doccache"
	healthuc "github.com/fiscalia-cloud/fiscalia/internal/usecase/health"
	"github.com/fiscalia-cloud/fiscalia/internal/usecase/rank"
	"github.com/fiscalia-cloud/fiscalia/internal/usecase/retrieval"
	"github.com/fiscalia-cloud/fiscalia/internal/usecase/router"
	"github.com/fiscalia-cloud/fiscalia/internal/usecase/synthesize"
	"github.com/fiscalia-cloud/fiscalia/internal/version"
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

	logger.Info("Starting fiscalia API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_bucket", cfg.Store.Bucket),
	)

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	ctx := context.Background()

	store, err := docstore.New(ctx, docstore.Config{
		Endpoint:  cfg.Store.Endpoint,
		Region:    cfg.Store.Region,
		Bucket:    cfg.Store.Bucket,
		Prefix:    cfg.Store.Prefix,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		Timeout:   time.Duration(cfg.Store.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}

	queryEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	docEmbedder, err := embcache.New(
		queryEmbedder, cfg.Retrieval.EmbedCacheSize, metrics.EmbeddingCacheTotal, logger,
	)
	if err != nil {
		logger.Fatal("Failed to create embedding cache", zap.Error(err))
	}

	documents := doccache.New(
		store, time.Duration(cfg.Retrieval.CacheTTLSec)*time.Second, logger,
	).WithInvalidator(docEmbedder)

	generator := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:    cfg.Generation.APIKey,
		BaseURL:   cfg.Generation.BaseURL,
		Model:     cfg.Generation.Model,
		MaxTokens: cfg.Generation.MaxTokens,
		Timeout:   time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:    logger,
	})

	// Classification uses the same provider with a tighter token and time budget.
	classifier := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:    cfg.Generation.APIKey,
		BaseURL:   cfg.Generation.BaseURL,
		Model:     cfg.Generation.ClassifyModel,
		MaxTokens: 16,
		Timeout:   time.Duration(cfg.Generation.ClassifyTimeoutSec) * time.Second,
		Logger:    logger,
	})

	ranker := rank.New(cfg.Retrieval.ScoreThreshold, cfg.Retrieval.TopK)
	synthesizer := synthesize.New(generator, cfg.Retrieval.MaxContextChars, cfg.Retrieval.SnippetChars)

	fiscal := retrieval.New(documents, queryEmbedder, docEmbedder, ranker, synthesizer, retrieval.Config{
		TitleRepeat:   cfg.Retrieval.TitleRepeat,
		ContentPrefix: cfg.Retrieval.ContentPrefixChars,
		Workers:       cfg.Retrieval.EmbedWorkers,
	})

	registry := domain.NewRegistry(domain.Label(cfg.Routing.DefaultLabel))
	registry.Register(domain.LabelFiscalite, fiscal)
	registry.Register(domain.LabelComptabilite, router.NewUnavailable(domain.LabelComptabilite, "comptabilité"))
	registry.Register(domain.LabelRH, router.NewUnavailable(domain.LabelRH, "ressources humaines"))
	registry.Register(domain.LabelJuridique, router.NewUnavailable(domain.LabelJuridique, "droit des affaires"))

	questionRouter := router.New(registry, classifier)

	healthSvc := healthuc.New(store, queryEmbedder)

	server := chiTransport.NewServer(questionRouter, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Post("/question", server.AskQuestion)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
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

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
