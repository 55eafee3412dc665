package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-api/internal/adapter/handler"
	"github.com/rl1809/inventory-api/internal/adapter/metrics"
	"github.com/rl1809/inventory-api/internal/adapter/storage"
	"github.com/rl1809/inventory-api/internal/adapter/token"
	"github.com/rl1809/inventory-api/internal/config"
	"github.com/rl1809/inventory-api/internal/core/service"
	"github.com/rl1809/inventory-api/internal/port"
)

func main() {
	bootLogger, _ := zap.NewProduction()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	logger, err := zapCfg.Build()
	if err != nil {
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	db, err := storage.OpenDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal("failed to connect store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	logger.Info("connected to store", zap.String("driver", cfg.DBDriver))

	// Initialize Redis; an unreachable cache only degrades item reads
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, item cache degraded", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// Initialize adapters
	sqlAdapter := storage.NewSQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	registry := prometheus.NewRegistry()
	promMetrics := metrics.NewPrometheus(registry)
	tokens := token.NewJWTService(token.Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, sqlAdapter)

	// Initialize services
	sessionService := service.NewSessionService(sqlAdapter, tokens, service.WithSessionLogger(logger))
	inventoryService := service.NewInventoryService(sqlAdapter, redisAdapter,
		service.WithCacheTTL(cfg.ItemCacheTTL),
		service.WithMetrics(promMetrics),
		service.WithInventoryLogger(logger),
	)

	// Background workers
	var wg sync.WaitGroup
	healthChecker := handler.NewHealthChecker(sqlAdapter, redisAdapter, logger)

	wg.Add(2)
	go func() {
		defer wg.Done()
		healthChecker.Run(ctx, cfg.HealthInterval)
	}()
	go func() {
		defer wg.Done()
		purgeLoop(ctx, cfg.RevocationPurgeInterval, sqlAdapter, logger)
	}()

	// Start gRPC server
	grpcServer := grpc.NewServer()
	healthChecker.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Start HTTP server
	httpHandler := handler.NewHTTPHandler(sessionService, inventoryService, healthChecker, promMetrics, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(httpHandler, metrics.Handler(registry), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	cancel()
	wg.Wait()
	logger.Info("workers stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

// purgeLoop drops revocation entries whose tokens have expired on their own.
func purgeLoop(ctx context.Context, interval time.Duration, revocations port.RevocationRepository, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, purgeCancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := revocations.PurgeRevocations(purgeCtx, time.Now())
			purgeCancel()

			if err != nil {
				logger.Error("failed to purge revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
