package domain

// Operation is the kind of processor call a request asks for.
type Operation string

const (
	OperationSale   Operation = "sale"
	OperationRefund Operation = "refund"
	OperationVoid   Operation = "void"
)

// Operations lists every supported operation in a stable order.
var Operations = []Operation{OperationSale, OperationRefund, OperationVoid}

// Status is the normalized outcome of a processor call.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)

// ProviderBraintree is the only provider name ever reported.
const ProviderBraintree = "braintree"

// Error codes and messages used when the processor gives nothing better.
const (
	ErrorCodeNetwork      = "BT_NETWORK"
	ErrorCodeGeneric      = "BT_ERROR"
	DefaultNetworkMessage = "Network/timeout"
	DefaultFailureMessage = "Unknown error"
)

// ResultError describes why a result is FAILED.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CanonicalResult is the provider-independent record of one processor call.
// Error is set if and only if Status is FAILED.
type CanonicalResult struct {
	MerchantReference string       `json:"merchantReference"`
	Provider          string       `json:"provider"`
	Operation         Operation    `json:"operation"`
	Status            Status       `json:"status"`
	TransactionID     *string      `json:"transactionId"`
	Amount            *string      `json:"amount"`
	Currency          *string      `json:"currency"`
	Error             *ResultError `json:"error,omitempty"`
}

// IsFailed reports whether the result carries an error.
func (r CanonicalResult) IsFailed() bool {
	return r.Status == StatusFailed
}

// Clone returns a deep copy so cached values cannot be changed through a caller's copy.
func (r CanonicalResult) Clone() CanonicalResult {
	out := r
	out.TransactionID = cloneString(r.TransactionID)
	out.Amount = cloneString(r.Amount)
	out.Currency = cloneString(r.Currency)
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return out
}

// NullableString returns nil for the empty string, otherwise a pointer to s.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
