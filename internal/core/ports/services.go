package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"

	"payrelay/internal/core/domain"
)

// --- Service Ports (Business Logic) ---

// Outcome is what the orchestrator pipeline answers for one request.
type Outcome struct {
	Result     domain.CanonicalResult
	HTTPStatus int
	Replayed   bool // served from the idempotency cache
}

// OrchestratorService runs the validate, dedupe, process, normalize, cache, notify pipeline.
type OrchestratorService interface {
	Execute(ctx context.Context, op domain.Operation, req domain.TransactionRequest) (*Outcome, error)
	Metrics() map[string]uint64
}

// MerchantService is the merchant-facing gateway.
type MerchantService interface {
	// Forward validates req and relays it to the orchestrator.
	// headerKey is the X-Idempotency-Key header value, used when the body has none.
	Forward(ctx context.Context, op domain.Operation, req domain.TransactionRequest, headerKey string) (*ForwardResponse, error)
	// HandleCallback stores payload as received; only merchantReference is checked.
	HandleCallback(ctx context.Context, payload domain.CallbackPayload) (domain.StatusRecord, error)
	GetStatus(ctx context.Context, merchantReference string) (domain.StatusRecord, error)
	Metrics() map[string]uint64
}

// Notifier delivers a result to a callback URL. It never returns an error;
// failures are reported in the NotifyResult.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, result domain.CanonicalResult) domain.NotifyResult
}

// Headers carried by signed callbacks.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}
