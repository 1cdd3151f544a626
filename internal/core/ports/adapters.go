package ports

//go:generate mockgen -source=adapters.go -destination=mocks/mock_adapters.go -package=mocks

import (
	"context"
	"time"

	"payrelay/internal/core/domain"
)

// --- Outbound Ports (Adapters) ---

// Processor is the external payment processor.
// A non-nil error means the call did not produce a processor answer (transport failure);
// business rejections come back as a RawResult with Success=false.
type Processor interface {
	Sale(ctx context.Context, params domain.SaleParams) (*domain.RawResult, error)
	Refund(ctx context.Context, transactionID string, amount string) (*domain.RawResult, error)
	Void(ctx context.Context, transactionID string) (*domain.RawResult, error)
}

// IdempotencyCache remembers the result produced for an idempotency key.
type IdempotencyCache interface {
	Get(key string) (domain.CanonicalResult, bool)
	Set(key string, result domain.CanonicalResult)
}

// StatusStore keeps the latest callback payload per merchant reference (last write wins).
type StatusStore interface {
	Save(merchantReference string, payload domain.CallbackPayload) domain.StatusRecord
	Get(merchantReference string) (domain.StatusRecord, bool)
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet returns true if the nonce is new for scope, false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// Broadcaster pushes status events to every connected subscriber.
type Broadcaster interface {
	// Broadcast returns the number of subscribers the event was delivered to.
	Broadcast(event domain.StatusEvent) int
}

// EventPublisher emits completed pipeline results to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, idempotencyKey string, result domain.CanonicalResult) error
	Close() error
}

// ForwardResponse is the orchestrator's raw answer to a forwarded request.
type ForwardResponse struct {
	StatusCode int
	Body       []byte
}

// OrchestratorClient forwards merchant requests to the orchestrator.
// A non-nil error means no HTTP response was received.
type OrchestratorClient interface {
	Forward(ctx context.Context, op domain.Operation, req domain.TransactionRequest) (*ForwardResponse, error)
}

// Counters is a set of named monotonic counters.
type Counters interface {
	Inc(name string)
	Snapshot() map[string]uint64
}

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "redis", "kafka").
	Name() string
}
