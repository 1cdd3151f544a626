package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"payrelay/config"
	httpHandler "payrelay/internal/adapter/http/handler"
	"payrelay/internal/adapter/http/middleware"
	"payrelay/internal/adapter/orchestrator"
	"payrelay/internal/adapter/realtime"
	"payrelay/internal/adapter/storage/memory"
	redisStorage "payrelay/internal/adapter/storage/redis"
	"payrelay/internal/core/ports"
	"payrelay/internal/metrics"
	"payrelay/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	nonceCapacity = 100000
	nonceMaxTTL   = 2 * time.Minute
)

func merchantCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "merchant",
		Short: "Run the merchant gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath, "merchant")
			if err != nil {
				return err
			}
			return runMerchant(cfg, log)
		},
	}
}

func runMerchant(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Merchant.Port).
		Str("orchestrator_url", cfg.Merchant.OrchestratorURL).
		Msg("Starting merchant gateway")

	client := orchestrator.NewClient(cfg.Merchant.OrchestratorURL, &http.Client{}, cfg.Merchant.ForwardTimeout)
	store := memory.NewStatusStore(cfg.Merchant.StatusCapacity, cfg.Merchant.StatusTTL)

	hub := realtime.NewHub(log)
	wsHandler := realtime.NewHandler(hub, cfg.CORS.AllowedOrigins, log)

	counters := metrics.NewCounters("merchant", service.MerchantCounterNames()...)

	svc := service.NewMerchantService(client, store, hub, counters, cfg.Merchant.CallbackURL(), log)

	deps := httpHandler.MerchantRouterDeps{
		Service:        svc,
		Counters:       counters,
		Realtime:       wsHandler,
		CallbackSecret: cfg.Callback.Secret,
		SigSvc:         service.NewHMACSignatureService(),
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		Logger:         log,
	}

	var closeRedis func() error
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closeRedis = rdb.Close

		deps.NonceStore = redisStorage.NewNonceStore(rdb)
		deps.HealthCheckers = []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)}
		if cfg.RateLimit.Enabled {
			deps.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
			deps.RateLimit = middleware.RateLimitRule{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}
		}
	} else {
		deps.NonceStore = memory.NewNonceStore(nonceCapacity, nonceMaxTTL)
		if cfg.RateLimit.Enabled {
			log.Warn().Msg("rate limiting requires Redis, disabled")
		}
	}
	if cfg.Callback.Secret == "" {
		log.Warn().Msg("callback.secret is empty, callbacks are accepted unsigned")
	}

	router := httpHandler.SetupMerchantRouter(deps)

	return serve(cfg.Server.Host, cfg.Merchant.Port, router, log, func(context.Context) {
		if closeRedis != nil {
			if err := closeRedis(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis client")
			}
		}
	})
}
