package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"locki.app/backend/internal/bootstrap"
	"locki.app/backend/internal/config"
	"locki.app/backend/internal/server"
	"locki.app/backend/pkg/database"
	"locki.app/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Log)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDemoUsers(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo users")
		}
	}

	redisClient := connectRedis(cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv := server.NewServer(cfg, db, redisClient)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.Run(":" + cfg.Port); err != nil {
			logger.Fatal().Err(err).Msg("server exited with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the server then runs
// without rate limits, token revocation and live streams.
func connectRedis(url string) *redis.Client {
	if url == "" {
		logger.Warn().Msg("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, running without redis")
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, running without redis")
		_ = client.Close()
		return nil
	}
	return client
}
