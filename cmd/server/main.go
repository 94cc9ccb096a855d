package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/config"
	"github.com/ipede/authz-server/internal/infrastructure/database"
	"github.com/ipede/authz-server/internal/infrastructure/repository"
	"github.com/ipede/authz-server/internal/infrastructure/token"
	httprouter "github.com/ipede/authz-server/internal/interfaces/http"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create database connection
	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create redis connection for the session store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	sessions := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL, logger)

	// Signing keys
	keys := token.NewLocalKeyProvider(logger)
	if cfg.HMACKeySecret != "" {
		if err := keys.AddHMACKey(cfg.HMACKeyID, []byte(cfg.HMACKeySecret)); err != nil {
			logger.Fatal("Failed to register HMAC signing key", zap.Error(err))
		}
	}
	if err := keys.LoadRSAKey(cfg.RSAKeyID, cfg.RSAKeyPath); err != nil {
		logger.Fatal("Failed to load RSA signing key", zap.Error(err))
	}

	// Authentication policies are registered before the server accepts
	// traffic; duplicate ids are fatal here
	registry := domain.NewAuthnRegistry()
	if cfg.DevPolicyEnabled {
		if err := registerDevPolicy(registry); err != nil {
			logger.Fatal("Failed to register development policy", zap.Error(err))
		}
		logger.Warn("Development login policy enabled; do not use in production")
	}

	// Create router
	router := httprouter.NewRouter(db, sessions, registry, keys, logger)

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}
