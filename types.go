package x402

// X402Version is the protocol version spoken by this module
const X402Version = 1

// SchemeExact is the only payment scheme this module accepts: the submitted
// transfer must match the published terms exactly
const SchemeExact = "exact"

// PaymentRequirement represents the terms for one accepted payment scheme
type PaymentRequirement struct {
	Scheme            string `json:"scheme" validate:"required"`
	Network           string `json:"network" validate:"required"`
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required"`
	Resource          string `json:"resource" validate:"required"`
	Description       string `json:"description,omitempty"`
	MimeType          string `json:"mimeType,omitempty"`
	PayTo             string `json:"payTo" validate:"required"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds,omitempty"`
	Asset             string `json:"asset" validate:"required"`

	// Extra carries the membership parameters so clients can self-assess
	// eligibility before spending a network round trip
	Extra *PaymentExtra `json:"extra,omitempty"`
}

// PaymentExtra contains the membership override parameters for a requirement.
// Amounts are decimal strings in the membership token's smallest unit.
type PaymentExtra struct {
	MemberToken     string `json:"memberToken,omitempty"`
	MemberThreshold string `json:"memberThreshold,omitempty"`
}

// PaymentRequirements is the 402 challenge body: the protocol version plus
// every requirement the server accepts. The engine only ever consults
// Accepts[0] (single-scheme support). Error carries the rejection reason on
// re-challenges and is omitted otherwise.
type PaymentRequirements struct {
	X402Version int                  `json:"x402Version"`
	Accepts     []PaymentRequirement `json:"accepts" validate:"required,min=1,dive"`
	Error       string               `json:"error,omitempty"`
}

// PaymentHeaderPayload is the decoded X-PAYMENT request header
type PaymentHeaderPayload struct {
	X402Version int                 `json:"x402Version"`
	Scheme      string              `json:"scheme"`
	Network     string              `json:"network"`
	Payload     ExactPaymentPayload `json:"payload"`
}

// ExactPaymentPayload carries the signed transaction bytes and the unique
// reference correlating one payment attempt
type ExactPaymentPayload struct {
	TxBase64  string `json:"txBase64"`
	Reference string `json:"reference"`
}

// PaymentReceipt is the decoded X-PAYMENT-RESPONSE header. Exactly one of
// TxHash (settled on-chain payment) or MemberAccess (fee-free member grant)
// is set. SettledAt is RFC 3339.
type PaymentReceipt struct {
	TxHash       string `json:"txHash,omitempty"`
	MemberAccess bool   `json:"memberAccess,omitempty"`
	SettledAt    string `json:"settledAt"`
}
