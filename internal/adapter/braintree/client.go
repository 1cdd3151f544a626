// Package braintree talks to the Braintree gateway through braintree-go.
package braintree

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"payrelay/config"
	"payrelay/internal/core/domain"

	bt "github.com/braintree-go/braintree-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the gateway does not know the transaction.
var ErrNotFound = errors.New("braintree: transaction not found")

// APIError is an unexpected HTTP answer from the gateway.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("braintree: unexpected response status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// Transactions is the part of the braintree-go transaction gateway the
// client needs. *bt.TransactionGateway satisfies it.
type Transactions interface {
	Create(ctx context.Context, tx *bt.TransactionRequest) (*bt.Transaction, error)
	Refund(ctx context.Context, id string, amount ...*bt.Decimal) (*bt.Transaction, error)
	Void(ctx context.Context, id string) (*bt.Transaction, error)
}

// statusCoder is implemented by the gateway's non-validation errors.
type statusCoder interface {
	StatusCode() int
}

// Client implements ports.Processor against the Braintree gateway.
type Client struct {
	txns Transactions
	log  zerolog.Logger
}

// Environment maps an environment name to the braintree-go environment.
func Environment(name string) bt.Environment {
	if strings.EqualFold(name, "production") {
		return bt.Production
	}
	return bt.Sandbox
}

// NewClient creates a gateway client. A nil httpClient uses http.DefaultClient;
// timeouts come from the caller's context.
func NewClient(cfg config.BraintreeConfig, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	gw := bt.NewWithHttpClient(Environment(cfg.Environment), cfg.MerchantID, cfg.PublicKey, cfg.PrivateKey, httpClient)
	return NewClientWithTransactions(gw.Transaction(), log)
}

// NewClientWithTransactions creates a client on top of an existing
// transaction gateway.
func NewClientWithTransactions(txns Transactions, log zerolog.Logger) *Client {
	return &Client{txns: txns, log: log}
}

// Sale creates a sale transaction.
func (c *Client) Sale(ctx context.Context, params domain.SaleParams) (*domain.RawResult, error) {
	amount, err := toDecimal(params.Amount)
	if err != nil {
		return nil, err
	}
	req := &bt.TransactionRequest{
		Type:               "sale",
		Amount:             amount,
		PaymentMethodNonce: params.PaymentMethodNonce,
		DeviceData:         params.DeviceData,
	}
	if params.SubmitForSettlement {
		req.Options = &bt.TransactionOptions{SubmitForSettlement: true}
	}

	txn, err := c.txns.Create(ctx, req)
	return c.result("sale", txn, err)
}

// Refund refunds a settled transaction. An empty amount refunds it in full.
func (c *Client) Refund(ctx context.Context, transactionID string, amount string) (*domain.RawResult, error) {
	var amounts []*bt.Decimal
	if amount != "" {
		d, err := toDecimal(amount)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, d)
	}

	txn, err := c.txns.Refund(ctx, transactionID, amounts...)
	return c.result("refund", txn, err)
}

// Void cancels an authorized or submitted transaction.
func (c *Client) Void(ctx context.Context, transactionID string) (*domain.RawResult, error) {
	txn, err := c.txns.Void(ctx, transactionID)
	return c.result("void", txn, err)
}

// result turns the gateway answer into a RawResult. Validation failures and
// declines come back from braintree-go as *bt.BraintreeError and are results,
// not errors.
func (c *Client) result(op string, txn *bt.Transaction, err error) (*domain.RawResult, error) {
	if err == nil {
		c.log.Debug().Str("operation", op).Str("transaction_id", txn.Id).Msg("braintree call")
		return &domain.RawResult{Success: true, Transaction: toProcessorTransaction(txn)}, nil
	}

	var btErr *bt.BraintreeError
	if errors.As(err, &btErr) {
		c.log.Debug().Str("operation", op).Str("message", btErr.ErrorMessage).Msg("braintree call rejected")
		out := &domain.RawResult{
			Success:     false,
			Message:     btErr.ErrorMessage,
			Transaction: toProcessorTransaction(btErr.Transaction),
		}
		for _, ve := range btErr.All() {
			out.Errors = append(out.Errors, domain.ValidationError{
				Attribute: ve.Attribute,
				Code:      ve.Code,
				Message:   ve.Message,
			})
		}
		return out, nil
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if sc.StatusCode() == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, &APIError{StatusCode: sc.StatusCode(), Err: err}
	}
	return nil, fmt.Errorf("braintree %s: %w", op, err)
}

func toProcessorTransaction(txn *bt.Transaction) *domain.ProcessorTransaction {
	if txn == nil || (txn.Id == "" && txn.Status == "") {
		return nil
	}
	out := &domain.ProcessorTransaction{
		ID:                    txn.Id,
		Status:                string(txn.Status),
		CurrencyISOCode:       txn.CurrencyISOCode,
		ProcessorResponseText: txn.ProcessorResponseText,
	}
	if txn.Amount != nil {
		out.Amount = txn.Amount.String()
	}
	if code := txn.ProcessorResponseCode.Int(); code != 0 {
		out.ProcessorResponseCode = strconv.Itoa(code)
	}
	return out
}

// toDecimal converts a decimal amount string to the gateway's fixed-point
// form, keeping the caller's scale ("10.00" stays two places).
func toDecimal(amount string) (*bt.Decimal, error) {
	if amount == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("braintree: invalid amount %q: %w", amount, err)
	}
	scale := int32(0)
	if d.Exponent() < 0 {
		scale = -d.Exponent()
	}
	return bt.NewDecimal(d.Shift(scale).IntPart(), int(scale)), nil
}
