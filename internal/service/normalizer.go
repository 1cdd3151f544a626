package service

import (
	"payrelay/internal/core/domain"
)

// NormalizeInput is everything Normalize needs besides the processor answer.
// Amount and Currency are the caller-supplied values and may be empty.
type NormalizeInput struct {
	MerchantReference string
	Operation         domain.Operation
	Amount            string
	Currency          string
	Raw               *domain.RawResult
}

// Normalize maps a processor answer onto a CanonicalResult. It is total: a nil
// or empty answer yields a FAILED result with the generic error code.
func Normalize(in NormalizeInput) domain.CanonicalResult {
	var txn *domain.ProcessorTransaction
	if in.Raw != nil {
		txn = in.Raw.Transaction
	}

	out := domain.CanonicalResult{
		MerchantReference: in.MerchantReference,
		Provider:          domain.ProviderBraintree,
		Operation:         in.Operation,
		Amount:            domain.NullableString(in.Amount),
		Currency:          domain.NullableString(in.Currency),
	}
	if txn != nil {
		out.TransactionID = domain.NullableString(txn.ID)
	}

	if in.Raw != nil && in.Raw.Success {
		out.Status = domain.StatusSuccess
		if txn != nil {
			if domain.IsPendingProcessorStatus(txn.Status) {
				out.Status = domain.StatusPending
			}
			if out.Amount == nil {
				out.Amount = domain.NullableString(txn.Amount)
			}
			if out.Currency == nil {
				out.Currency = domain.NullableString(txn.CurrencyISOCode)
			}
		}
		return out
	}

	out.Status = domain.StatusFailed
	out.Error = &domain.ResultError{
		Code:    failureCode(in.Raw),
		Message: failureMessage(in.Raw),
	}
	return out
}

func failureCode(raw *domain.RawResult) string {
	if raw == nil {
		return domain.ErrorCodeGeneric
	}
	if raw.Transaction != nil && raw.Transaction.ProcessorResponseCode != "" {
		return raw.Transaction.ProcessorResponseCode
	}
	if len(raw.Errors) > 0 && raw.Errors[0].Code != "" {
		return raw.Errors[0].Code
	}
	return domain.ErrorCodeGeneric
}

func failureMessage(raw *domain.RawResult) string {
	if raw == nil {
		return domain.DefaultFailureMessage
	}
	if raw.Transaction != nil && raw.Transaction.ProcessorResponseText != "" {
		return raw.Transaction.ProcessorResponseText
	}
	if raw.Message != "" {
		return raw.Message
	}
	return domain.DefaultFailureMessage
}

// NetworkFailure builds the FAILED result recorded when the processor could
// not be reached at all. Refunds and voids keep the transaction they targeted.
func NetworkFailure(op domain.Operation, req domain.TransactionRequest, err error) domain.CanonicalResult {
	msg := domain.DefaultNetworkMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}

	out := domain.CanonicalResult{
		MerchantReference: req.MerchantReference,
		Provider:          domain.ProviderBraintree,
		Operation:         op,
		Status:            domain.StatusFailed,
		Amount:            domain.NullableString(req.Amount.String()),
		Currency:          domain.NullableString(ResultCurrency(op, req)),
		Error:             &domain.ResultError{Code: domain.ErrorCodeNetwork, Message: msg},
	}
	if op != domain.OperationSale {
		out.TransactionID = domain.NullableString(req.TransactionID)
	}
	return out
}

// ResultCurrency is the caller currency reported in a result. Only sales
// carry one; refunds and voids report the processor's currency, if any.
func ResultCurrency(op domain.Operation, req domain.TransactionRequest) string {
	if op != domain.OperationSale {
		return ""
	}
	return req.Currency
}
