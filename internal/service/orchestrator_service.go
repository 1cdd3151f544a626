package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultProcessorTimeout bounds a single processor call attempt.
const DefaultProcessorTimeout = 30 * time.Second

// OrchestratorCounterNames lists the counters the orchestrator reports.
func OrchestratorCounterNames() []string {
	names := make([]string, 0, len(domain.Operations)*3)
	for _, op := range domain.Operations {
		names = append(names, counterName(op, "attempts"), counterName(op, "success"), counterName(op, "failed"))
	}
	return names
}

func counterName(op domain.Operation, suffix string) string {
	return string(op) + "_" + suffix
}

// OrchestratorOptions tunes the pipeline.
type OrchestratorOptions struct {
	Retries          int           // extra processor attempts after a transport failure
	ProcessorTimeout time.Duration // per attempt
}

// OrchestratorServiceImpl implements ports.OrchestratorService.
type OrchestratorServiceImpl struct {
	processor ports.Processor
	cache     ports.IdempotencyCache
	notifier  ports.Notifier
	publisher ports.EventPublisher
	counters  ports.Counters
	opts      OrchestratorOptions
	log       zerolog.Logger

	inflight   singleflight.Group
	background sync.WaitGroup
}

// NewOrchestratorService creates the orchestrator pipeline. publisher may be nil.
func NewOrchestratorService(
	processor ports.Processor,
	cache ports.IdempotencyCache,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	counters ports.Counters,
	opts OrchestratorOptions,
	log zerolog.Logger,
) *OrchestratorServiceImpl {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.ProcessorTimeout <= 0 {
		opts.ProcessorTimeout = DefaultProcessorTimeout
	}
	return &OrchestratorServiceImpl{
		processor: processor,
		cache:     cache,
		notifier:  notifier,
		publisher: publisher,
		counters:  counters,
		opts:      opts,
		log:       log,
	}
}

// Execute runs one request through the pipeline.
// Validation problems come back as *apperror.AppError; every other outcome,
// including processor failures, is an Outcome.
func (s *OrchestratorServiceImpl) Execute(ctx context.Context, op domain.Operation, req domain.TransactionRequest) (*ports.Outcome, error) {
	if err := validateOrchestratorRequest(op, &req); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(req.IdempotencyKey); ok {
		s.log.Debug().Str("idempotency_key", req.IdempotencyKey).Str("operation", string(op)).Msg("idempotency cache hit")
		return &ports.Outcome{Result: cached, HTTPStatus: http.StatusOK, Replayed: true}, nil
	}

	// Concurrent first requests for one key share a single processor call.
	v, _, _ := s.inflight.Do(req.IdempotencyKey, func() (interface{}, error) {
		if cached, ok := s.cache.Get(req.IdempotencyKey); ok {
			return &ports.Outcome{Result: cached, HTTPStatus: http.StatusOK, Replayed: true}, nil
		}
		return s.process(ctx, op, req), nil
	})

	out := *v.(*ports.Outcome)
	out.Result = out.Result.Clone()
	return &out, nil
}

// Metrics returns a snapshot of the pipeline counters.
func (s *OrchestratorServiceImpl) Metrics() map[string]uint64 {
	return s.counters.Snapshot()
}

// Wait blocks until every background notification and publish has finished.
func (s *OrchestratorServiceImpl) Wait() {
	s.background.Wait()
}

func (s *OrchestratorServiceImpl) process(ctx context.Context, op domain.Operation, req domain.TransactionRequest) *ports.Outcome {
	s.counters.Inc(counterName(op, "attempts"))

	// The processor call must not be abandoned because the caller went away.
	base := context.WithoutCancel(ctx)
	raw, err := withRetry(base, s.opts.Retries, func(ctx context.Context) (*domain.RawResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.ProcessorTimeout)
		defer cancel()
		return s.call(attemptCtx, op, req)
	})

	status := http.StatusOK
	var result domain.CanonicalResult
	if err != nil {
		s.log.Error().Err(err).
			Str("operation", string(op)).
			Str("merchant_reference", req.MerchantReference).
			Msg("processor unreachable after retry")
		result = NetworkFailure(op, req, err)
		status = http.StatusBadGateway
	} else {
		result = Normalize(NormalizeInput{
			MerchantReference: req.MerchantReference,
			Operation:         op,
			Amount:            req.Amount.String(),
			Currency:          ResultCurrency(op, req),
			Raw:               raw,
		})
	}

	s.cache.Set(req.IdempotencyKey, result)

	if result.IsFailed() {
		s.counters.Inc(counterName(op, "failed"))
	} else {
		s.counters.Inc(counterName(op, "success"))
	}

	s.log.Info().
		Str("operation", string(op)).
		Str("merchant_reference", req.MerchantReference).
		Str("status", string(result.Status)).
		Int("http_status", status).
		Msg("pipeline completed")

	s.dispatch(req, result)

	return &ports.Outcome{Result: result, HTTPStatus: status}
}

func (s *OrchestratorServiceImpl) call(ctx context.Context, op domain.Operation, req domain.TransactionRequest) (*domain.RawResult, error) {
	switch op {
	case domain.OperationSale:
		return s.processor.Sale(ctx, domain.SaleParams{
			Amount:              req.Amount.String(),
			PaymentMethodNonce:  req.PaymentMethodNonce,
			DeviceData:          req.DeviceData,
			SubmitForSettlement: true,
		})
	case domain.OperationRefund:
		return s.processor.Refund(ctx, req.TransactionID, req.Amount.String())
	case domain.OperationVoid:
		return s.processor.Void(ctx, req.TransactionID)
	}
	return nil, fmt.Errorf("unsupported operation %q", op)
}

// dispatch notifies the callback URL and publishes the result without
// holding up the response.
func (s *OrchestratorServiceImpl) dispatch(req domain.TransactionRequest, result domain.CanonicalResult) {
	if req.CallbackURL == "" && s.publisher == nil {
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx := context.Background()

		if req.CallbackURL != "" {
			res := s.notifier.Notify(ctx, req.CallbackURL, result)
			ev := s.log.Info()
			if !res.Sent {
				ev = s.log.Warn()
			}
			ev.Str("merchant_reference", result.MerchantReference).
				Bool("sent", res.Sent).
				Int("status", res.Status).
				Str("error", res.Error).
				Msg("callback notification")
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, req.IdempotencyKey, result); err != nil {
				s.log.Warn().Err(err).Str("merchant_reference", result.MerchantReference).Msg("result event publish failed")
			}
		}
	}()
}

func validateOrchestratorRequest(op domain.Operation, req *domain.TransactionRequest) error {
	if domain.RequiredFields(op) == nil {
		return apperror.Validation(fmt.Sprintf("Unsupported operation: %s", op))
	}
	if field, missing := req.MissingField(op); missing {
		return apperror.ErrMissingField(field)
	}
	if req.Amount != "" {
		if err := req.Amount.Validate(); err != nil {
			return apperror.ErrInvalidField("amount")
		}
	}
	return nil
}
