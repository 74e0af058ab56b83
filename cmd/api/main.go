package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/haven/backend/internal/analysis/crisis"
	"github.com/zhouzirui/haven/backend/internal/analysis/emotion"
	"github.com/zhouzirui/haven/backend/internal/config"
	"github.com/zhouzirui/haven/backend/internal/handler"
	"github.com/zhouzirui/haven/backend/internal/observability/metrics"
	"github.com/zhouzirui/haven/backend/internal/service/ai"
	"github.com/zhouzirui/haven/backend/internal/service/chat"
	"github.com/zhouzirui/haven/backend/internal/service/prompt"
	"github.com/zhouzirui/haven/backend/internal/service/reply"
	"github.com/zhouzirui/haven/backend/internal/store"
	"github.com/zhouzirui/haven/backend/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.LogLevel)
	slog.SetDefault(logger.Logger)
	if envErr != nil {
		logger.Warn("no .env file loaded, using process environment only", "error", envErr)
	}

	messages, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open message store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("message store ready", "backend", cfg.Store.Backend)

	provider, closeProvider := newProvider(ctx, cfg.AI, logger)
	defer closeProvider()
	generator := ai.NewService(provider)
	logger.Info("generation provider ready", "provider", generator.ProviderName(), "timeout", cfg.AI.Timeout.String())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	chatService, err := chat.NewService(chat.Deps{
		Store:      messages,
		Detector:   crisis.NewDetector(crisis.DefaultPhrases),
		Classifier: emotion.NewClassifier(emotion.DefaultKeywords()),
		Selector:   reply.NewSelector(reply.DefaultPools()),
		Composer:   prompt.NewComposer(cfg.Pipeline.SystemInstruction),
		Generator:  generator,
		Metrics:    metrics.NewChatMetrics(registry),
		Logger:     logger.With("component", "chat"),
	}, chat.Options{
		ContextLimit:       cfg.Pipeline.ContextLimit,
		PromptContextLimit: cfg.Pipeline.PromptContextLimit,
		GenerationTimeout:  cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to build chat service", "error", err)
		os.Exit(1)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Chat:           chatService,
		Logger:         logger.With("component", "http"),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       registry,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return store.NewPostgresStore(pool), pool.Close, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		s := store.NewRedisStore(client, store.RedisOptions{
			SessionTTL:  cfg.RedisSessionTTL,
			MaxMessages: cfg.RedisMaxMessages,
		})
		return s, func() { _ = client.Close() }, nil

	default:
		s := store.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	}
}

// newProvider never fails startup: without a working provider every turn is
// answered from the template pools.
func newProvider(ctx context.Context, cfg config.AIConfig, logger *logging.Logger) (ai.Provider, func()) {
	noop := func() {}

	switch cfg.ResolvedProvider() {
	case config.ProviderArk:
		provider, err := ai.NewArkProvider(ctx, cfg)
		if err != nil {
			logger.Warn("ark provider unavailable, falling back to templates", "error", err)
			return nil, noop
		}
		return provider, noop

	case config.ProviderGemini:
		provider, err := ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini provider unavailable, falling back to templates", "error", err)
			return nil, noop
		}
		return provider, func() { _ = provider.Close() }

	default:
		logger.Info("no generation provider configured, replies come from templates")
		return nil, noop
	}
}

func startServer(ctx context.Context, logger *logging.Logger, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("haven backend listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
