package dto

import (
	"payrelay/internal/core/domain"
)

// TransactionBody is the JSON body accepted by every payment route of both
// services. Tags only constrain values that are present; DecodeTransaction
// checks required fields first. The idempotency key is compared byte for
// byte, so it is never trimmed.
type TransactionBody struct {
	Amount             domain.Amount `json:"amount"`
	Currency           string        `json:"currency" binding:"omitempty,max=3"`
	PaymentMethodNonce string        `json:"paymentMethodNonce" binding:"omitempty,max=4096"`
	TransactionID      string        `json:"transactionId" binding:"omitempty,max=64,safe_id"`
	MerchantReference  string        `json:"merchantReference" binding:"omitempty,max=255"`
	IdempotencyKey     string        `json:"idempotencyKey" binding:"omitempty,max=255" sanitize:"-"`
	CallbackURL        string        `json:"callbackUrl" binding:"omitempty,max=2048,safe_url"`
	DeviceData         string        `json:"deviceData" binding:"omitempty,max=8192"`
}

// ToDomain converts the body to the request the services work with.
func (b TransactionBody) ToDomain() domain.TransactionRequest {
	return domain.TransactionRequest{
		Amount:             b.Amount,
		Currency:           b.Currency,
		PaymentMethodNonce: b.PaymentMethodNonce,
		TransactionID:      b.TransactionID,
		MerchantReference:  b.MerchantReference,
		IdempotencyKey:     b.IdempotencyKey,
		CallbackURL:        b.CallbackURL,
		DeviceData:         b.DeviceData,
	}
}

// CallbackAck is the answer to an accepted callback.
type CallbackAck struct {
	Received bool `json:"received"`
}

// DependencyStatus is one entry of the health report.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}
