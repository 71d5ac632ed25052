package x402

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// MimeTypeJSON is the content type of the gated resource
const MimeTypeJSON = "application/json"

// DefaultMaxTimeoutSeconds is the settlement window advertised to clients.
// It is a client-side hint, not an engine-enforced deadline.
const DefaultMaxTimeoutSeconds = 60

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// RequirementConfig holds the server-side terms for one protected resource
type RequirementConfig struct {
	// Resource is the full URL of the protected resource
	Resource string
	// PriceMinorUnits is the exact price in the asset's smallest unit
	PriceMinorUnits uint64
	// Asset is the SPL mint the payment must transfer
	Asset string
	// PayTo is the merchant's destination token account
	PayTo string
	// Network is the x402 network name, e.g. "solana-devnet"
	Network string
	// Description is shown to clients in the challenge
	Description string
	// MimeType overrides MimeTypeJSON when non-empty
	MimeType string
	// MemberToken and MemberThreshold parameterize the fee-free membership
	// override; threshold is in the membership token's smallest unit
	MemberToken     string
	MemberThreshold uint64
	// MaxTimeoutSeconds overrides DefaultMaxTimeoutSeconds when non-zero
	MaxTimeoutSeconds int
}

// BuildPaymentRequirements constructs the canonical challenge for a protected
// resource. Deterministic given the config, no side effects. The built set is
// checked against the wire contract's struct tags; a violation means the
// server is misconfigured and is returned as invalid_requirements.
func BuildPaymentRequirements(cfg RequirementConfig) (*PaymentRequirements, error) {
	timeout := cfg.MaxTimeoutSeconds
	if timeout == 0 {
		timeout = DefaultMaxTimeoutSeconds
	}
	mimeType := cfg.MimeType
	if mimeType == "" {
		mimeType = MimeTypeJSON
	}

	requirement := PaymentRequirement{
		Scheme:            SchemeExact,
		Network:           cfg.Network,
		MaxAmountRequired: strconv.FormatUint(cfg.PriceMinorUnits, 10),
		Resource:          cfg.Resource,
		Description:       cfg.Description,
		MimeType:          mimeType,
		PayTo:             cfg.PayTo,
		MaxTimeoutSeconds: timeout,
		Asset:             cfg.Asset,
		Extra: &PaymentExtra{
			MemberToken:     cfg.MemberToken,
			MemberThreshold: strconv.FormatUint(cfg.MemberThreshold, 10),
		},
	}

	requirements := &PaymentRequirements{
		X402Version: X402Version,
		Accepts:     []PaymentRequirement{requirement},
	}

	if err := validate.Struct(requirements); err != nil {
		return nil, NewPaymentError(ErrCodeInvalidRequirements,
			fmt.Sprintf("payment requirements failed validation: %v", err), nil)
	}

	return requirements, nil
}

// WithError returns a copy of the requirements carrying a rejection reason,
// preserving the original challenge for the caller to reuse.
func (p *PaymentRequirements) WithError(reason string) *PaymentRequirements {
	out := *p
	out.Error = reason
	return &out
}
