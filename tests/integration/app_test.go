package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"payrelay/internal/adapter/braintree"
	httpHandler "payrelay/internal/adapter/http/handler"
	"payrelay/internal/adapter/orchestrator"
	"payrelay/internal/adapter/realtime"
	"payrelay/internal/adapter/storage/memory"
	redisStorage "payrelay/internal/adapter/storage/redis"
	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/internal/metrics"
	"payrelay/internal/service"
	"payrelay/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const callbackSecret = "integration-callback-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// testApp wires both services end-to-end: the merchant gateway forwards to
// the orchestrator, which runs the sandbox simulator and delivers signed
// callbacks back to the gateway. Nonces live in miniredis.
type testApp struct {
	orchestrator *httptest.Server
	merchant     *httptest.Server
	redis        *miniredis.Miniredis
	rdb          *goredis.Client
	processor    *countingProcessor
	orchSvc      *service.OrchestratorServiceImpl
	store        *memory.StatusStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	log := logger.New("test", "error", false)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	sigSvc := service.NewHMACSignatureService()

	// Orchestrator
	processor := &countingProcessor{Processor: braintree.NewSimulator("USD")}
	orchCounters := metrics.NewCounters("orchestrator", service.OrchestratorCounterNames()...)
	orchSvc := service.NewOrchestratorService(
		processor,
		memory.NewIdempotencyCache(100, 0),
		service.NewCallbackNotifier(&http.Client{}, sigSvc, callbackSecret, 0, log),
		nil,
		orchCounters,
		service.OrchestratorOptions{Retries: 1},
		log,
	)
	orchServer := httptest.NewServer(httpHandler.SetupOrchestratorRouter(httpHandler.OrchestratorRouterDeps{
		Service:  orchSvc,
		Counters: orchCounters,
		Logger:   log,
	}))

	// Merchant gateway. The callback URL must point back at this server, so
	// the handler is installed after the listener exists.
	var merchantRouter http.Handler
	merchantServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchantRouter.ServeHTTP(w, r)
	}))

	store := memory.NewStatusStore(1000, 0)
	hub := realtime.NewHub(log)
	merchantCounters := metrics.NewCounters("merchant", service.MerchantCounterNames()...)
	merchantSvc := service.NewMerchantService(
		orchestrator.NewClient(orchServer.URL, &http.Client{}, 0),
		store,
		hub,
		merchantCounters,
		merchantServer.URL+"/merchant/callback",
		log,
	)
	merchantRouter = httpHandler.SetupMerchantRouter(httpHandler.MerchantRouterDeps{
		Service:        merchantSvc,
		Counters:       merchantCounters,
		Realtime:       realtime.NewHandler(hub, nil, log),
		CallbackSecret: callbackSecret,
		SigSvc:         sigSvc,
		NonceStore:     redisStorage.NewNonceStore(rdb),
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	app := &testApp{
		orchestrator: orchServer,
		merchant:     merchantServer,
		redis:        mr,
		rdb:          rdb,
		processor:    processor,
		orchSvc:      orchSvc,
		store:        store,
	}
	t.Cleanup(app.close)
	return app
}

func (a *testApp) close() {
	a.merchant.Close()
	a.orchSvc.Wait()
	a.orchestrator.Close()
	a.rdb.Close()
	a.redis.Close()
}

// countingProcessor records how many sales reached the processor.
type countingProcessor struct {
	ports.Processor
	sales atomic.Int32
}

func (p *countingProcessor) Sale(ctx context.Context, params domain.SaleParams) (*domain.RawResult, error) {
	p.sales.Add(1)
	return p.Processor.Sale(ctx, params)
}

type apiResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r apiResponse) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

func doRequest(t *testing.T, method, url, body string, headers map[string]string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return apiResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
}

func counters(t *testing.T, url string) map[string]uint64 {
	t.Helper()
	resp := doRequest(t, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]uint64
	resp.decode(t, &out)
	return out
}
