package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/smartshop/backend/config"
	httpDelivery "github.com/smartshop/backend/internal/delivery/http"
	"github.com/smartshop/backend/internal/domain"
	"github.com/smartshop/backend/internal/infrastructure/bedrock"
	"github.com/smartshop/backend/internal/infrastructure/cache"
	"github.com/smartshop/backend/internal/infrastructure/store"
	"github.com/smartshop/backend/internal/infrastructure/telemetry"
	"github.com/smartshop/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("smartshop: %v", err)
	}
}

func run() error {
	// .env is a development convenience only
	if os.Getenv("SMARTSHOP_SERVER_ENVIRONMENT") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("[Main] starting SmartShop backend",
		zap.String("version", cfg.Server.Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	shutdownOtel, err := telemetry.InitOtel(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Server.Environment,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	// Initialize infrastructure dependencies
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Bedrock.Region))
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	slots, err := store.Open(ctx, store.Config{
		Type:       cfg.Store.Type,
		Dir:        cfg.Store.Dir,
		S3Bucket:   cfg.Store.S3Bucket,
		S3Prefix:   cfg.Store.S3Prefix,
		SQLitePath: cfg.Store.SQLitePath,
	}, s3.NewFromConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	zap.L().Info("[Main] slot store ready", zap.String("type", cfg.Store.Type))

	var offerCache domain.OfferCache
	var memoryCache *cache.MemoryCache
	if cfg.Cache.Enabled {
		memoryCache = cache.NewMemoryCache(0)
		offerCache = memoryCache
		zap.L().Info("[Main] offer cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	llm := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.ClientOptions{
		ModelID:           cfg.Bedrock.ModelID,
		MaxTokens:         cfg.Bedrock.MaxTokens,
		Temperature:       cfg.Bedrock.Temperature,
		TopP:              cfg.Bedrock.TopP,
		RequestsPerSecond: cfg.Bedrock.RequestsPerSecond,
		Burst:             cfg.Bedrock.Burst,
	})
	advisor := bedrock.NewAdvisor(llm, bedrock.NewRetrier(bedrock.RetryConfig{
		MaxAttempts: cfg.Optimizer.MaxAttempts,
		BaseDelay:   cfg.Optimizer.RetryBaseDelay,
		MaxJitter:   cfg.Optimizer.RetryMaxJitter,
	}))
	zap.L().Info("[Main] Bedrock advisor configured",
		zap.String("region", cfg.Bedrock.Region),
		zap.String("model", cfg.Bedrock.ModelID),
	)

	// Initialize usecase layer
	optimizer := usecase.NewOptimizationService(advisor, offerCache, usecase.OptimizerConfig{
		Mode:           cfg.Optimizer.Mode,
		ChunkSize:      cfg.Optimizer.ChunkSize,
		Concurrency:    cfg.Optimizer.Concurrency,
		ChunkDelay:     cfg.Optimizer.ChunkDelay,
		Markup:         cfg.Optimizer.Markup,
		CurrencySymbol: cfg.Optimizer.CurrencySymbol,
		CacheTTL:       cfg.Cache.TTL,
	})

	hub := httpDelivery.NewProgressHub()
	shopping := usecase.NewShoppingService(ctx, slots, advisor, optimizer, usecase.ShoppingServiceConfig{
		OnRunEvent: hub.Publish,
	})

	handler := httpDelivery.NewHandler(shopping, cfg.Server.Version)
	router := httpDelivery.SetupRouter(cfg, handler, hub)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("[Main] server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		zap.L().Info("[Main] shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := hub.Close(); err != nil {
		zap.L().Warn("[Main] progress hub close failed", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("[Main] server shutdown failed", zap.Error(err))
	}
	if memoryCache != nil {
		memoryCache.Close()
	}
	if err := slots.Close(); err != nil {
		zap.L().Error("[Main] store close failed", zap.Error(err))
	}
	if err := shutdownOtel(shutdownCtx); err != nil {
		zap.L().Error("[Main] telemetry shutdown failed", zap.Error(err))
	}

	zap.L().Info("[Main] server stopped")
	return nil
}
