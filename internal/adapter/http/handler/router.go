package handler

import (
	"net/http"
	"time"

	"payrelay/internal/adapter/http/middleware"
	"payrelay/internal/adapter/realtime"
	"payrelay/internal/core/ports"
	"payrelay/pkg/apperror"
	"payrelay/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OrchestratorRouterDeps holds all dependencies needed to set up the orchestrator routes.
type OrchestratorRouterDeps struct {
	Service        ports.OrchestratorService
	Counters       PrometheusWriter // nil = JSON counters only
	HealthCheckers []ports.HealthChecker
	CORSOrigins    []string
	Logger         zerolog.Logger
}

// MerchantRouterDeps holds all dependencies needed to set up the merchant gateway routes.
type MerchantRouterDeps struct {
	Service        ports.MerchantService
	Counters       PrometheusWriter  // nil = JSON counters only
	Realtime       *realtime.Handler // nil = push channel disabled
	CallbackSecret string            // empty = callbacks are not verified
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore          // nil = no replay protection
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	RateLimit      middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	CORSOrigins    []string
	Logger         zerolog.Logger
}

// SetupOrchestratorRouter initialises the orchestrator's Gin engine.
func SetupOrchestratorRouter(deps OrchestratorRouterDeps) *gin.Engine {
	r := newEngine("orchestrator", deps.CORSOrigins, deps.HealthCheckers, deps.Logger)

	h := NewOrchestratorHandler(deps.Service)
	orch := r.Group("/orchestrator")
	{
		orch.POST("/sale", h.Sale)
		orch.POST("/refund", h.Refund)
		orch.POST("/void", h.Void)
		orch.GET("/metrics", Counters(deps.Service.Metrics, deps.Counters))
	}

	return r
}

// SetupMerchantRouter initialises the merchant gateway's Gin engine.
func SetupMerchantRouter(deps MerchantRouterDeps) *gin.Engine {
	r := newEngine("merchant", deps.CORSOrigins, deps.HealthCheckers, deps.Logger)

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil || deps.RateLimit.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, deps.RateLimit, deps.Logger)
	}

	callbackAuth := func(c *gin.Context) { c.Next() }
	if deps.CallbackSecret != "" && deps.SigSvc != nil {
		callbackAuth = middleware.CallbackAuth(deps.CallbackSecret, deps.SigSvc, deps.NonceStore, deps.Logger)
	}

	h := NewMerchantHandler(deps.Service)
	merchant := r.Group("/merchant")
	{
		merchant.POST("/payments", rl("merchant_writes"), h.Payments)
		merchant.POST("/refunds", rl("merchant_writes"), h.Refunds)
		merchant.POST("/void", rl("merchant_writes"), h.Void)
		merchant.POST("/callback", callbackAuth, h.Callback)
		merchant.GET("/status/:merchantReference", h.Status)
		merchant.GET("/metrics", Counters(deps.Service.Metrics, deps.Counters))
		if deps.Realtime != nil {
			merchant.GET("/ws", deps.Realtime.Subscribe)
		}
	}

	return r
}

func newEngine(service string, origins []string, checkers []ports.HealthChecker, log zerolog.Logger) *gin.Engine {
	r := gin.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.NewHTTPMetrics(reg, service).Handler())
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))
	r.Use(corsMiddleware(origins))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperror.New("RES_002", "Route not found", http.StatusNotFound))
	})

	// Health check (deep, verifies every registered dependency)
	r.GET("/health", HealthCheck(service, checkers...))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderIdempotencyKey, middleware.HeaderRequestID, ports.HeaderSignature, ports.HeaderTimestamp, ports.HeaderNonce},
		ExposeHeaders: []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
