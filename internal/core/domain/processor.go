package domain

// Processor-side transaction statuses that still await settlement.
const (
	ProcessorStatusAuthorized             = "authorized"
	ProcessorStatusSubmittedForSettlement = "submitted_for_settlement"
	ProcessorStatusSettling               = "settling"
	ProcessorStatusSettled                = "settled"
	ProcessorStatusVoided                 = "voided"
	ProcessorStatusProcessorDeclined      = "processor_declined"
	ProcessorStatusGatewayRejected        = "gateway_rejected"
)

// IsPendingProcessorStatus reports whether a successful call left the
// transaction in a state that has not settled yet.
func IsPendingProcessorStatus(status string) bool {
	switch status {
	case ProcessorStatusAuthorized, ProcessorStatusSubmittedForSettlement, ProcessorStatusSettling:
		return true
	}
	return false
}

// SaleParams are the arguments of a processor sale.
type SaleParams struct {
	Amount              string
	PaymentMethodNonce  string
	DeviceData          string
	SubmitForSettlement bool
}

// ProcessorTransaction is the subset of a processor transaction the pipeline reads.
type ProcessorTransaction struct {
	ID                    string
	Status                string
	Amount                string
	CurrencyISOCode       string
	ProcessorResponseCode string
	ProcessorResponseText string
}

// ValidationError is one entry of the processor's (flattened) validation error tree.
type ValidationError struct {
	Attribute string
	Code      string
	Message   string
}

// RawResult is what the processor returned for a call that reached it.
// A transport failure is reported as an error instead.
type RawResult struct {
	Success     bool
	Transaction *ProcessorTransaction
	Message     string
	Errors      []ValidationError
}
