package service

import (
	"context"
	"encoding/json"
	"net/http"

	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Merchant counter names.
const (
	CounterCallbacksReceived = "callbacks_received"
	CounterStatusQueries     = "status_queries"
)

// MerchantCounterNames lists the counters the merchant gateway reports.
func MerchantCounterNames() []string {
	names := make([]string, 0, len(domain.Operations)+2)
	for _, op := range domain.Operations {
		names = append(names, counterName(op, "forwarded"))
	}
	return append(names, CounterCallbacksReceived, CounterStatusQueries)
}

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	client      ports.OrchestratorClient
	store       ports.StatusStore
	broadcaster ports.Broadcaster
	counters    ports.Counters
	callbackURL string
	log         zerolog.Logger
	newKey      func() string
}

// NewMerchantService creates the merchant gateway. callbackURL is handed to
// the orchestrator when the client does not supply its own.
func NewMerchantService(
	client ports.OrchestratorClient,
	store ports.StatusStore,
	broadcaster ports.Broadcaster,
	counters ports.Counters,
	callbackURL string,
	log zerolog.Logger,
) *MerchantServiceImpl {
	return &MerchantServiceImpl{
		client:      client,
		store:       store,
		broadcaster: broadcaster,
		counters:    counters,
		callbackURL: callbackURL,
		log:         log,
		newKey:      uuid.NewString,
	}
}

// Forward validates req, fills in the idempotency key and callback URL, and
// relays it to the orchestrator. The orchestrator's 2xx answers pass through
// untouched; anything else is relayed as described by relayFailure.
func (s *MerchantServiceImpl) Forward(ctx context.Context, op domain.Operation, req domain.TransactionRequest, headerKey string) (*ports.ForwardResponse, error) {
	fields := domain.MerchantRequiredFields(op)
	if fields == nil {
		return nil, apperror.Validation("Unsupported operation: " + string(op))
	}
	if field, missing := req.FirstMissing(fields); missing {
		return nil, apperror.ErrMissingField(field)
	}
	if req.Amount != "" {
		if err := req.Amount.Validate(); err != nil {
			return nil, apperror.ErrInvalidField("amount")
		}
	}

	switch {
	case req.IdempotencyKey != "":
	case headerKey != "":
		req.IdempotencyKey = headerKey
	default:
		req.IdempotencyKey = s.newKey()
	}
	if req.CallbackURL == "" {
		req.CallbackURL = s.callbackURL
	}
	if op != domain.OperationSale {
		req.PaymentMethodNonce = ""
		req.Currency = ""
		req.DeviceData = ""
	}

	s.counters.Inc(counterName(op, "forwarded"))

	resp, err := s.client.Forward(ctx, op, req)
	if err != nil {
		s.log.Error().Err(err).
			Str("operation", string(op)).
			Str("merchant_reference", req.MerchantReference).
			Msg("forwarding to orchestrator failed")
		return nil, apperror.ErrForwardingFailed(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &ports.ForwardResponse{StatusCode: http.StatusOK, Body: resp.Body}, nil
	}

	s.log.Warn().
		Str("operation", string(op)).
		Str("merchant_reference", req.MerchantReference).
		Int("upstream_status", resp.StatusCode).
		Msg("orchestrator answered with an error")
	return relayFailure(resp), nil
}

// relayFailure keeps the upstream status code. A canonical result body is
// relayed as is; otherwise only the error field survives.
func relayFailure(resp *ports.ForwardResponse) *ports.ForwardResponse {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if _, ok := body["status"]; ok {
			return resp
		}
		if msg, ok := body["error"]; ok && string(msg) != "null" {
			out, _ := json.Marshal(map[string]json.RawMessage{"error": msg})
			return &ports.ForwardResponse{StatusCode: resp.StatusCode, Body: out}
		}
	}
	out, _ := json.Marshal(map[string]string{"error": "Forwarding failed"})
	return &ports.ForwardResponse{StatusCode: resp.StatusCode, Body: out}
}

// HandleCallback stores the callback body as received and pushes the same
// payload to realtime subscribers. Only merchantReference is required.
func (s *MerchantServiceImpl) HandleCallback(_ context.Context, payload domain.CallbackPayload) (domain.StatusRecord, error) {
	reference := payload.MerchantReference()
	if reference == "" {
		return domain.StatusRecord{}, apperror.Validation("Missing merchantReference")
	}

	record := s.store.Save(reference, payload)
	s.counters.Inc(CounterCallbacksReceived)

	delivered := 0
	if s.broadcaster != nil {
		delivered = s.broadcaster.Broadcast(domain.NewStatusEvent(record))
	}

	s.log.Info().
		Str("merchant_reference", reference).
		Str("status", payload.String("status")).
		Int("subscribers", delivered).
		Msg("callback received")
	return record, nil
}

// GetStatus returns the last known status for a merchant reference.
func (s *MerchantServiceImpl) GetStatus(_ context.Context, merchantReference string) (domain.StatusRecord, error) {
	s.counters.Inc(CounterStatusQueries)

	record, ok := s.store.Get(merchantReference)
	if !ok {
		return domain.StatusRecord{}, apperror.ErrNotFound("")
	}
	return record, nil
}

// Metrics returns a snapshot of the gateway counters.
func (s *MerchantServiceImpl) Metrics() map[string]uint64 {
	return s.counters.Snapshot()
}
