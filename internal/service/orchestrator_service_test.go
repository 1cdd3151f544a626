package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"payrelay/internal/adapter/storage/memory"
	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
	"payrelay/internal/core/ports/mocks"
	"payrelay/internal/metrics"
	"payrelay/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type orchestratorFixture struct {
	svc       *OrchestratorServiceImpl
	processor *mocks.MockProcessor
	notifier  *mocks.MockNotifier
	publisher *mocks.MockEventPublisher
	cache     *memory.IdempotencyCache
	counters  *metrics.Counters
}

func newOrchestratorFixture(t *testing.T, withPublisher bool) *orchestratorFixture {
	ctrl := gomock.NewController(t)
	f := &orchestratorFixture{
		processor: mocks.NewMockProcessor(ctrl),
		notifier:  mocks.NewMockNotifier(ctrl),
		cache:     memory.NewIdempotencyCache(100, time.Minute),
		counters:  metrics.NewCounters("orchestrator", OrchestratorCounterNames()...),
	}
	var publisher ports.EventPublisher
	if withPublisher {
		f.publisher = mocks.NewMockEventPublisher(ctrl)
		publisher = f.publisher
	}
	opts := OrchestratorOptions{Retries: 1, ProcessorTimeout: time.Second}
	f.svc = NewOrchestratorService(f.processor, f.cache, f.notifier, publisher, f.counters, opts, newTestLogger())
	return f
}

func validSale() domain.TransactionRequest {
	return domain.TransactionRequest{
		Amount:             "10.00",
		Currency:           "USD",
		PaymentMethodNonce: "fake-valid-nonce",
		MerchantReference:  "order_1",
		IdempotencyKey:     "idem-1",
	}
}

func settledSale(status string) *domain.RawResult {
	return &domain.RawResult{
		Success: true,
		Transaction: &domain.ProcessorTransaction{
			ID:              "tx_abc",
			Status:          status,
			Amount:          "10.00",
			CurrencyISOCode: "USD",
		},
	}
}

func TestOrchestrator_SaleSubmittedIsPending(t *testing.T) {
	f := newOrchestratorFixture(t, false)

	f.processor.EXPECT().
		Sale(gomock.Any(), domain.SaleParams{
			Amount:              "10.00",
			PaymentMethodNonce:  "fake-valid-nonce",
			SubmitForSettlement: true,
		}).
		Return(settledSale(domain.ProcessorStatusSubmittedForSettlement), nil)

	out, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, http.StatusOK, out.HTTPStatus)
	assert.False(t, out.Replayed)
	assert.Equal(t, domain.StatusPending, out.Result.Status)
	assert.Equal(t, "tx_abc", domain.StringValue(out.Result.TransactionID))
	assert.Nil(t, out.Result.Error)

	snap := f.svc.Metrics()
	assert.Equal(t, uint64(1), snap["sale_attempts"])
	assert.Equal(t, uint64(1), snap["sale_success"])
	assert.Equal(t, uint64(0), snap["sale_failed"])
}

func TestOrchestrator_MissingIdempotencyKey(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	req := validSale()
	req.IdempotencyKey = ""

	out, err := f.svc.Execute(context.Background(), domain.OperationSale, req)

	assert.Nil(t, out)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "Missing field: idempotencyKey")
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, uint64(0), f.svc.Metrics()["sale_attempts"])
}

func TestOrchestrator_ValidationReportsFirstMissingField(t *testing.T) {
	tests := []struct {
		name  string
		op    domain.Operation
		req   domain.TransactionRequest
		field string
	}{
		{"sale without amount", domain.OperationSale, domain.TransactionRequest{Currency: "USD"}, "amount"},
		{"sale without nonce", domain.OperationSale, domain.TransactionRequest{Amount: "1", Currency: "USD"}, "paymentMethodNonce"},
		{"refund without transaction", domain.OperationRefund, domain.TransactionRequest{MerchantReference: "r"}, "transactionId"},
		{"void without reference", domain.OperationVoid, domain.TransactionRequest{TransactionID: "tx"}, "merchantReference"},
		{"void without key", domain.OperationVoid, domain.TransactionRequest{TransactionID: "tx", MerchantReference: "r"}, "idempotencyKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, false)

			_, err := f.svc.Execute(context.Background(), tt.op, tt.req)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "Missing field: "+tt.field, appErr.Message)
		})
	}
}

func TestOrchestrator_RejectsNonPositiveAmount(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	req := validSale()
	req.Amount = "-5"

	_, err := f.svc.Execute(context.Background(), domain.OperationSale, req)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Invalid field: amount", appErr.Message)
}

func TestOrchestrator_ReplaysCachedResult(t *testing.T) {
	f := newOrchestratorFixture(t, false)

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		Return(settledSale(domain.ProcessorStatusSettled), nil).
		Times(1)

	first, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	second, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	f.svc.Wait()

	assert.True(t, second.Replayed)
	assert.Equal(t, http.StatusOK, second.HTTPStatus)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, uint64(1), f.svc.Metrics()["sale_attempts"])
}

func TestOrchestrator_BusinessFailureIsCachedWith200(t *testing.T) {
	f := newOrchestratorFixture(t, false)

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		Return(&domain.RawResult{
			Success: false,
			Message: "Do Not Honor",
			Transaction: &domain.ProcessorTransaction{
				ID:                    "tx_declined",
				Status:                domain.ProcessorStatusProcessorDeclined,
				ProcessorResponseCode: "2000",
				ProcessorResponseText: "Do Not Honor",
			},
		}, nil).
		Times(1)

	out, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	replay, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, http.StatusOK, out.HTTPStatus)
	assert.Equal(t, domain.StatusFailed, out.Result.Status)
	require.NotNil(t, out.Result.Error)
	assert.Equal(t, "2000", out.Result.Error.Code)
	assert.Equal(t, "tx_declined", domain.StringValue(out.Result.TransactionID))
	assert.True(t, replay.Replayed)
	assert.Equal(t, domain.StatusFailed, replay.Result.Status)
	assert.Equal(t, uint64(1), f.svc.Metrics()["sale_failed"])
}

func TestOrchestrator_RetriesOnceThenSucceeds(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	req := domain.TransactionRequest{
		TransactionID:     "tx_abc",
		Amount:            "5.00",
		MerchantReference: "order_1",
		IdempotencyKey:    "refund-1",
	}

	gomock.InOrder(
		f.processor.EXPECT().Refund(gomock.Any(), "tx_abc", "5.00").Return(nil, errors.New("connection reset")),
		f.processor.EXPECT().Refund(gomock.Any(), "tx_abc", "5.00").Return(&domain.RawResult{
			Success:     true,
			Transaction: &domain.ProcessorTransaction{ID: "tx_refund", Status: domain.ProcessorStatusSubmittedForSettlement},
		}, nil),
	)

	out, err := f.svc.Execute(context.Background(), domain.OperationRefund, req)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, http.StatusOK, out.HTTPStatus)
	assert.Equal(t, domain.StatusPending, out.Result.Status)
	assert.Equal(t, "tx_refund", domain.StringValue(out.Result.TransactionID))
	assert.Equal(t, uint64(1), f.svc.Metrics()["refund_attempts"])
}

func TestOrchestrator_HardFailureAfterRetry(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	req := domain.TransactionRequest{
		TransactionID:     "tx_abc",
		MerchantReference: "order_9",
		IdempotencyKey:    "void-1",
	}

	f.processor.EXPECT().Void(gomock.Any(), "tx_abc").
		Return(nil, errors.New("dial tcp: i/o timeout")).
		Times(2)

	out, err := f.svc.Execute(context.Background(), domain.OperationVoid, req)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, http.StatusBadGateway, out.HTTPStatus)
	assert.Equal(t, domain.StatusFailed, out.Result.Status)
	require.NotNil(t, out.Result.Error)
	assert.Equal(t, domain.ErrorCodeNetwork, out.Result.Error.Code)
	assert.Equal(t, "dial tcp: i/o timeout", out.Result.Error.Message)
	assert.Equal(t, "tx_abc", domain.StringValue(out.Result.TransactionID))

	// The hard failure is cached; the replay answers 200.
	replay, err := f.svc.Execute(context.Background(), domain.OperationVoid, req)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, http.StatusOK, replay.HTTPStatus)
	assert.Equal(t, domain.ErrorCodeNetwork, replay.Result.Error.Code)
	assert.Equal(t, uint64(1), f.svc.Metrics()["void_failed"])
}

func TestOrchestrator_RefundReportsProcessorCurrency(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	req := domain.TransactionRequest{
		TransactionID:     "tx_abc",
		Amount:            "4.00",
		Currency:          "EUR",
		MerchantReference: "order_r",
		IdempotencyKey:    "refund-cur",
	}

	f.processor.EXPECT().Refund(gomock.Any(), "tx_abc", "4.00").
		Return(&domain.RawResult{
			Success: true,
			Transaction: &domain.ProcessorTransaction{
				ID:              "tx_refund",
				Status:          "submitted_for_settlement",
				Amount:          "4.00",
				CurrencyISOCode: "USD",
			},
		}, nil)

	out, err := f.svc.Execute(context.Background(), domain.OperationRefund, req)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, "USD", domain.StringValue(out.Result.Currency), "caller currency is not echoed on refunds")
	assert.Equal(t, "4.00", domain.StringValue(out.Result.Amount))
}

func TestOrchestrator_NotifiesAndPublishes(t *testing.T) {
	f := newOrchestratorFixture(t, true)
	req := validSale()
	req.CallbackURL = "http://merchant.local/merchant/callback"

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		Return(settledSale(domain.ProcessorStatusSettled), nil)
	f.notifier.EXPECT().
		Notify(gomock.Any(), "http://merchant.local/merchant/callback", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, result domain.CanonicalResult) domain.NotifyResult {
			assert.Equal(t, domain.StatusSuccess, result.Status)
			return domain.NotifyResult{Sent: true, Status: http.StatusOK}
		})
	f.publisher.EXPECT().Publish(gomock.Any(), "idem-1", gomock.Any()).Return(nil)

	_, err := f.svc.Execute(context.Background(), domain.OperationSale, req)
	require.NoError(t, err)
	f.svc.Wait()
}

func TestOrchestrator_NotificationFailureDoesNotAffectResponse(t *testing.T) {
	f := newOrchestratorFixture(t, true)
	req := validSale()
	req.CallbackURL = "http://merchant.local/merchant/callback"

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		Return(settledSale(domain.ProcessorStatusSettled), nil)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.NotifyResult{Sent: false, Error: "connection refused"})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	out, err := f.svc.Execute(context.Background(), domain.OperationSale, req)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, http.StatusOK, out.HTTPStatus)
	assert.Equal(t, domain.StatusSuccess, out.Result.Status)
}

func TestOrchestrator_NoCallbackSkipsNotifier(t *testing.T) {
	f := newOrchestratorFixture(t, false)

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		Return(settledSale(domain.ProcessorStatusSettled), nil)
	// notifier has no expectations; any call fails the test

	_, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
	require.NoError(t, err)
	f.svc.Wait()
}

func TestOrchestrator_ConcurrentSameKeyCallsProcessorOnce(t *testing.T) {
	f := newOrchestratorFixture(t, false)

	release := make(chan struct{})
	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.SaleParams) (*domain.RawResult, error) {
			<-release
			return settledSale(domain.ProcessorStatusSettled), nil
		}).
		Times(1)

	type executeResult struct {
		status domain.Status
		err    error
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]executeResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.svc.Execute(context.Background(), domain.OperationSale, validSale())
			if err != nil {
				results[i] = executeResult{err: err}
				return
			}
			results[i] = executeResult{status: out.Result.Status}
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	f.svc.Wait()

	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, domain.StatusSuccess, r.status)
	}
	assert.Equal(t, uint64(1), f.svc.Metrics()["sale_attempts"])
}

func TestOrchestrator_CallerCancellationDoesNotAbortProcessor(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.processor.EXPECT().Sale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.SaleParams) (*domain.RawResult, error) {
			require.NoError(t, ctx.Err())
			return settledSale(domain.ProcessorStatusSettled), nil
		})

	out, err := f.svc.Execute(ctx, domain.OperationSale, validSale())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, out.Result.Status)
}

func TestOrchestratorCounterNames(t *testing.T) {
	names := OrchestratorCounterNames()

	assert.Len(t, names, 9)
	assert.Contains(t, names, "sale_attempts")
	assert.Contains(t, names, "refund_success")
	assert.Contains(t, names, "void_failed")
}
