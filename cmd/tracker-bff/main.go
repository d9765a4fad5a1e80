package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/crashlens/tracker-bff/internal/server"
	"github.com/crashlens/tracker-bff/pkg/cache"
	"github.com/crashlens/tracker-bff/pkg/endpoints"
	"github.com/crashlens/tracker-bff/pkg/logging"
	"github.com/crashlens/tracker-bff/pkg/prewarm"
	"github.com/crashlens/tracker-bff/pkg/upstream"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "false") == "true",
		Output: os.Stderr,
	})

	port := getEnv("PORT", "8080")
	trackerToken := os.Getenv("TRACKER_TOKEN")
	userAgent := getEnv("USER_AGENT", "tracker-bff/1.0")
	configFiles := splitList(getEnv("ENDPOINT_CONFIG", "config/endpoints.yaml"))

	registry, err := buildRegistry(configFiles, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load endpoint configuration")
	}

	redisClient := setupRedis(logger)
	store := buildStore(redisClient, logger)
	interceptor := cache.NewInterceptor(store, registry, logger)

	clientCfg := upstream.DefaultConfig(registry, trackerToken)
	clientCfg.Redis = redisClient
	clientCfg.UserAgent = userAgent
	client, err := upstream.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if getEnv("PREWARM", "false") == "true" {
		warmer := prewarm.NewWarmer(client, interceptor, prewarm.DefaultConfig(), logger)
		go warmer.Run(ctx, warmTargets(), 5*time.Minute)
	}

	srv := server.New(server.Config{
		Port:        port,
		Registry:    registry,
		Interceptor: interceptor,
		Upstream:    client,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("upstream", registry.BaseURL()).
			Strs("categories", registry.Categories()).
			Msg("Starting gateway")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
	if redisClient != nil {
		redisClient.Close()
	}
}

// buildRegistry merges every configured endpoint document in order; later
// files override earlier ones per endpoint.
func buildRegistry(files []string, logger zerolog.Logger) (*endpoints.Registry, error) {
	registry := endpoints.NewRegistry(logger)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := registry.LoadDocument(data); err != nil {
			return nil, err
		}
		logger.Info().Str("file", file).Msg("Endpoint document loaded")
	}
	return registry, nil
}

// setupRedis connects to Redis when REDIS_URL is set. Without it the gateway
// runs memory-only: process-local cache, no shared rate limit state.
func setupRedis(logger zerolog.Logger) *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		logger.Info().Msg("REDIS_URL not set, running memory-only")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisURL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
	}

	logger.Info().Str("addr", redisURL).Msg("Connected to Redis")
	return client
}

func buildStore(redisClient *redis.Client, logger zerolog.Logger) cache.Store {
	if redisClient != nil {
		return cache.NewRedisStore(redisClient, logger)
	}
	return cache.NewMemoryStore()
}

// warmTargets reads the optional PREWARM_PROJECTS list
// ("org/project,org/project") and produces the issue-list targets to keep
// warm.
func warmTargets() []prewarm.Target {
	targets := []prewarm.Target{
		{Category: "projects", Name: "list"},
	}
	for _, pair := range splitList(os.Getenv("PREWARM_PROJECTS")) {
		org, project, ok := strings.Cut(pair, "/")
		if !ok {
			continue
		}
		targets = append(targets, prewarm.Target{
			Category: "issues",
			Name:     "list",
			Params: map[string]string{
				"organization_slug": org,
				"project_slug":      project,
			},
		})
	}
	return targets
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
