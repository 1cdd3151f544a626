package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a decimal amount kept in its original textual form.
// It decodes from either a JSON string or a JSON number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// String returns the amount text.
func (a Amount) String() string {
	return string(a)
}

// Decimal parses the amount.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(a))
}

var ErrNonPositiveAmount = errors.New("amount must be greater than zero")

// Validate checks that the amount is a positive decimal.
func (a Amount) Validate() error {
	d, err := a.Decimal()
	if err != nil {
		return err
	}
	if !d.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// TransactionRequest is the body the orchestrator accepts for every operation.
type TransactionRequest struct {
	Amount             Amount `json:"amount,omitempty"`
	Currency           string `json:"currency,omitempty"`
	PaymentMethodNonce string `json:"paymentMethodNonce,omitempty"`
	TransactionID      string `json:"transactionId,omitempty"`
	MerchantReference  string `json:"merchantReference"`
	IdempotencyKey     string `json:"idempotencyKey"`
	CallbackURL        string `json:"callbackUrl,omitempty"`
	DeviceData         string `json:"deviceData,omitempty"`
}

var requiredFields = map[Operation][]string{
	OperationSale:   {"amount", "currency", "paymentMethodNonce", "merchantReference", "idempotencyKey"},
	OperationRefund: {"transactionId", "merchantReference", "idempotencyKey"},
	OperationVoid:   {"transactionId", "merchantReference", "idempotencyKey"},
}

// The merchant gateway generates the idempotency key when the client sends
// none, so it is not required there.
var merchantRequiredFields = map[Operation][]string{
	OperationSale:   {"amount", "currency", "paymentMethodNonce", "merchantReference"},
	OperationRefund: {"transactionId", "amount", "merchantReference"},
	OperationVoid:   {"transactionId", "merchantReference"},
}

// RequiredFields returns the fields op needs, in the order they are checked.
func RequiredFields(op Operation) []string {
	return requiredFields[op]
}

// MerchantRequiredFields returns the fields the merchant gateway needs before
// forwarding op.
func MerchantRequiredFields(op Operation) []string {
	return merchantRequiredFields[op]
}

// MissingField returns the first required field of op that is empty.
func (r *TransactionRequest) MissingField(op Operation) (string, bool) {
	return r.FirstMissing(requiredFields[op])
}

// FirstMissing returns the first of fields (JSON names) that is empty.
func (r *TransactionRequest) FirstMissing(fields []string) (string, bool) {
	for _, f := range fields {
		if r.field(f) == "" {
			return f, true
		}
	}
	return "", false
}

func (r *TransactionRequest) field(name string) string {
	switch name {
	case "amount":
		return r.Amount.String()
	case "currency":
		return r.Currency
	case "paymentMethodNonce":
		return r.PaymentMethodNonce
	case "transactionId":
		return r.TransactionID
	case "merchantReference":
		return r.MerchantReference
	case "idempotencyKey":
		return r.IdempotencyKey
	}
	return ""
}
