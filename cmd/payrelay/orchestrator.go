package main

import (
	"context"
	"net/http"

	"payrelay/config"
	"payrelay/internal/adapter/braintree"
	httpHandler "payrelay/internal/adapter/http/handler"
	kafkaMessaging "payrelay/internal/adapter/messaging/kafka"
	"payrelay/internal/adapter/storage/memory"
	"payrelay/internal/core/ports"
	"payrelay/internal/metrics"
	"payrelay/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const simulatorCurrency = "USD"

func orchestratorCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "orchestrator",
		Short: "Run the payment orchestrator (Braintree pipeline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath, "orchestrator")
			if err != nil {
				return err
			}
			return runOrchestrator(cfg, log)
		},
	}
}

func runOrchestrator(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Orchestrator.Port).
		Msg("Starting payment orchestrator")

	processor := newProcessor(cfg.Braintree, log)

	cache := memory.NewIdempotencyCache(cfg.Orchestrator.IdempotencyCapacity, cfg.Orchestrator.IdempotencyTTL)

	sigSvc := service.NewHMACSignatureService()
	notifier := service.NewCallbackNotifier(&http.Client{}, sigSvc, cfg.Callback.Secret, cfg.Callback.Timeout, log)

	var (
		publisher ports.EventPublisher
		checkers  []ports.HealthChecker
	)
	if cfg.Kafka.Enabled {
		publisher = kafkaMessaging.NewResultPublisher(kafkaMessaging.NewWriter(cfg.Kafka))
		checkers = append(checkers, kafkaMessaging.NewHealthCheck(cfg.Kafka.Brokers))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka result publishing enabled")
	}

	counters := metrics.NewCounters("orchestrator", service.OrchestratorCounterNames()...)

	svc := service.NewOrchestratorService(
		processor,
		cache,
		notifier,
		publisher,
		counters,
		service.OrchestratorOptions{
			Retries:          cfg.Orchestrator.Retries,
			ProcessorTimeout: cfg.Orchestrator.ProcessorTimeout,
		},
		log,
	)

	router := httpHandler.SetupOrchestratorRouter(httpHandler.OrchestratorRouterDeps{
		Service:        svc,
		Counters:       counters,
		HealthCheckers: checkers,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		Logger:         log,
	})

	return serve(cfg.Server.Host, cfg.Orchestrator.Port, router, log, func(ctx context.Context) {
		drained := make(chan struct{})
		go func() {
			svc.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			log.Warn().Msg("timed out waiting for in-flight notifications")
		}

		if publisher != nil {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Kafka publisher")
			}
		}
	})
}

// newProcessor talks to Braintree when credentials are configured and falls
// back to the sandbox simulator otherwise.
func newProcessor(cfg config.BraintreeConfig, log zerolog.Logger) ports.Processor {
	if cfg.HasCredentials() && !cfg.Simulate {
		log.Info().Str("environment", cfg.Environment).Msg("Using Braintree gateway")
		return braintree.NewClient(cfg, &http.Client{}, log)
	}
	log.Warn().Msg("Braintree credentials missing or simulation requested, using sandbox simulator")
	return braintree.NewSimulator(simulatorCurrency)
}
