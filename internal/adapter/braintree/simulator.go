package braintree

import (
	"context"
	"strings"
	"sync"

	"payrelay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Test nonces understood by the simulator, matching the gateway's sandbox.
const (
	NonceValid             = "fake-valid-nonce"
	NonceProcessorDeclined = "fake-processor-declined-visa-nonce"
	NonceGatewayRejected   = "fake-gateway-rejected-fraud-nonce"
	NonceConsumed          = "fake-consumed-nonce"
)

var (
	declineFloor   = decimal.NewFromInt(2000)
	declineCeiling = decimal.NewFromInt(3000)
)

// Simulator is an in-memory stand-in for the gateway used when no credentials
// are configured. Like the sandbox, sale amounts from 2000.00 to 2999.99 are
// declined with the amount as the processor response code.
type Simulator struct {
	mu           sync.Mutex
	transactions map[string]*domain.ProcessorTransaction
	currency     string
	newID        func() string
}

func NewSimulator(currency string) *Simulator {
	if currency == "" {
		currency = "USD"
	}
	return &Simulator{
		transactions: make(map[string]*domain.ProcessorTransaction),
		currency:     currency,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

func (s *Simulator) Sale(ctx context.Context, params domain.SaleParams) (*domain.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(params.Amount)
	if err != nil || !amount.IsPositive() {
		return validationFailure("amount", "81503", "Amount must be greater than zero."), nil
	}

	switch params.PaymentMethodNonce {
	case NonceValid:
	case NonceConsumed:
		return validationFailure("payment_method_nonce", "93107", "Cannot use a payment_method_nonce more than once."), nil
	case NonceProcessorDeclined:
		return s.declined(amount, domain.ProcessorStatusProcessorDeclined, "2000", "Do Not Honor"), nil
	case NonceGatewayRejected:
		return s.declined(amount, domain.ProcessorStatusGatewayRejected, "", "Gateway Rejected: fraud"), nil
	default:
		return validationFailure("payment_method_nonce", "91565", "Unknown payment_method_nonce."), nil
	}

	if amount.GreaterThanOrEqual(declineFloor) && amount.LessThan(declineCeiling) {
		code := amount.Truncate(0).String()
		return s.declined(amount, domain.ProcessorStatusProcessorDeclined, code, "Processor Declined"), nil
	}

	status := domain.ProcessorStatusAuthorized
	if params.SubmitForSettlement {
		status = domain.ProcessorStatusSubmittedForSettlement
	}
	txn := s.store(&domain.ProcessorTransaction{
		Status:                status,
		Amount:                amount.StringFixed(2),
		CurrencyISOCode:       s.currency,
		ProcessorResponseCode: "1000",
		ProcessorResponseText: "Approved",
	})
	return &domain.RawResult{Success: true, Transaction: txn}, nil
}

func (s *Simulator) Refund(ctx context.Context, transactionID string, amount string) (*domain.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	orig, ok := s.transactions[transactionID]
	var origCopy domain.ProcessorTransaction
	if ok {
		origCopy = *orig
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if origCopy.Status == domain.ProcessorStatusVoided {
		return validationFailure("base", "91506", "Cannot refund transaction unless it is settled."), nil
	}

	refundAmount := origCopy.Amount
	if amount != "" {
		requested, err := decimal.NewFromString(amount)
		if err != nil || !requested.IsPositive() {
			return validationFailure("amount", "81503", "Amount must be greater than zero."), nil
		}
		if requested.GreaterThan(decimal.RequireFromString(origCopy.Amount)) {
			return validationFailure("amount", "91521", "Refund amount is too large."), nil
		}
		refundAmount = requested.StringFixed(2)
	}

	txn := s.store(&domain.ProcessorTransaction{
		Status:                domain.ProcessorStatusSubmittedForSettlement,
		Amount:                refundAmount,
		CurrencyISOCode:       origCopy.CurrencyISOCode,
		ProcessorResponseCode: "1002",
		ProcessorResponseText: "Processed",
	})
	return &domain.RawResult{Success: true, Transaction: txn}, nil
}

func (s *Simulator) Void(ctx context.Context, transactionID string) (*domain.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	if txn.Status != domain.ProcessorStatusAuthorized && txn.Status != domain.ProcessorStatusSubmittedForSettlement {
		return validationFailure("base", "91504", "Transaction can only be voided if status is authorized or submitted_for_settlement."), nil
	}
	txn.Status = domain.ProcessorStatusVoided
	out := *txn
	return &domain.RawResult{Success: true, Transaction: &out}, nil
}

func (s *Simulator) declined(amount decimal.Decimal, status, code, text string) *domain.RawResult {
	txn := s.store(&domain.ProcessorTransaction{
		Status:                status,
		Amount:                amount.StringFixed(2),
		CurrencyISOCode:       s.currency,
		ProcessorResponseCode: code,
		ProcessorResponseText: text,
	})
	return &domain.RawResult{Success: false, Message: text, Transaction: txn}
}

// store assigns an id and returns a copy of the stored transaction.
func (s *Simulator) store(txn *domain.ProcessorTransaction) *domain.ProcessorTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn.ID = s.newID()
	s.transactions[txn.ID] = txn
	out := *txn
	return &out
}

func validationFailure(attribute, code, message string) *domain.RawResult {
	return &domain.RawResult{
		Success: false,
		Message: message,
		Errors:  []domain.ValidationError{{Attribute: attribute, Code: code, Message: message}},
	}
}
