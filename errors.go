package x402

import "fmt"

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, one per failure class. Every rejection a client sees maps to
// exactly one of these; all of them are recoverable by rebuilding a fresh
// payment attempt against the re-issued requirements.
const (
	// ErrCodeMalformedHeader covers base64/JSON decoding failures and
	// missing payload fields in the X-PAYMENT header.
	ErrCodeMalformedHeader = "malformed_header"
	// ErrCodeProtocolMismatch covers version/scheme/network disagreement
	// between the submitted header and the published requirement.
	ErrCodeProtocolMismatch = "protocol_mismatch"
	// ErrCodeValidationFailure covers structural and financial violations
	// in the submitted transaction (amount, destination, mint, decimals,
	// signature presence, reference reuse).
	ErrCodeValidationFailure = "validation_failure"
	// ErrCodeNetworkFailure covers balance-query or broadcast RPC errors,
	// surfaced verbatim and never retried by the server.
	ErrCodeNetworkFailure = "network_failure"
	// ErrCodeInvalidRequirements covers requirement sets that fail
	// publication validation; a server configuration error.
	ErrCodeInvalidRequirements = "invalid_requirements"
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
