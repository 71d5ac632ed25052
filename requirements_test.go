package x402

import (
	"encoding/json"
	"errors"
	"testing"
)

func testRequirementConfig() RequirementConfig {
	return RequirementConfig{
		Resource:        "http://localhost:4021/weather",
		PriceMinorUnits: 10000,
		Asset:           "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		PayTo:           "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2",
		Network:         "solana-devnet",
		Description:     "Current temperature reading",
		MemberToken:     "9vMJfxuKxXBoEa7rM12mYLMwTacLMLDJqHozw96WQL8i",
		MemberThreshold: 1,
	}
}

func TestBuildPaymentRequirements(t *testing.T) {
	requirements, err := BuildPaymentRequirements(testRequirementConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if requirements.X402Version != 1 {
		t.Fatalf("Expected x402Version 1, got %d", requirements.X402Version)
	}
	if len(requirements.Accepts) != 1 {
		t.Fatalf("Expected 1 accepted requirement, got %d", len(requirements.Accepts))
	}

	accepted := requirements.Accepts[0]
	if accepted.Scheme != SchemeExact {
		t.Fatalf("Expected scheme %q, got %q", SchemeExact, accepted.Scheme)
	}
	if accepted.Network != "solana-devnet" {
		t.Fatalf("Expected network 'solana-devnet', got %q", accepted.Network)
	}
	if accepted.MaxAmountRequired != "10000" {
		t.Fatalf("Expected maxAmountRequired '10000', got %q", accepted.MaxAmountRequired)
	}
	if accepted.MimeType != MimeTypeJSON {
		t.Fatalf("Expected mimeType %q, got %q", MimeTypeJSON, accepted.MimeType)
	}
	if accepted.MaxTimeoutSeconds != DefaultMaxTimeoutSeconds {
		t.Fatalf("Expected maxTimeoutSeconds %d, got %d", DefaultMaxTimeoutSeconds, accepted.MaxTimeoutSeconds)
	}
	if accepted.Extra == nil {
		t.Fatal("Expected membership extra to be set")
	}
	if accepted.Extra.MemberToken != "9vMJfxuKxXBoEa7rM12mYLMwTacLMLDJqHozw96WQL8i" {
		t.Fatalf("Unexpected memberToken %q", accepted.Extra.MemberToken)
	}
	if accepted.Extra.MemberThreshold != "1" {
		t.Fatalf("Expected memberThreshold '1', got %q", accepted.Extra.MemberThreshold)
	}
}

func TestBuildPaymentRequirementsIsDeterministic(t *testing.T) {
	cfg := testRequirementConfig()

	first, err := BuildPaymentRequirements(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := BuildPaymentRequirements(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("Expected identical output, got %s vs %s", firstJSON, secondJSON)
	}
}

func TestBuildPaymentRequirementsValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RequirementConfig)
	}{
		{"missing payTo", func(c *RequirementConfig) { c.PayTo = "" }},
		{"missing asset", func(c *RequirementConfig) { c.Asset = "" }},
		{"missing network", func(c *RequirementConfig) { c.Network = "" }},
		{"missing resource", func(c *RequirementConfig) { c.Resource = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testRequirementConfig()
			tt.mutate(&cfg)

			_, err := BuildPaymentRequirements(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var paymentErr *PaymentError
			if !errors.As(err, &paymentErr) {
				t.Fatalf("Expected *PaymentError, got %T", err)
			}
			if paymentErr.Code != ErrCodeInvalidRequirements {
				t.Fatalf("Expected code %s, got %s", ErrCodeInvalidRequirements, paymentErr.Code)
			}
		})
	}
}

func TestWithErrorPreservesOriginal(t *testing.T) {
	requirements, err := BuildPaymentRequirements(testRequirementConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rejected := requirements.WithError("transfer amount mismatch")
	if rejected.Error != "transfer amount mismatch" {
		t.Fatalf("Expected error to be set, got %q", rejected.Error)
	}
	if requirements.Error != "" {
		t.Fatalf("Original requirements mutated: %q", requirements.Error)
	}
	if len(rejected.Accepts) != 1 || rejected.Accepts[0].MaxAmountRequired != "10000" {
		t.Fatal("Rejected challenge should carry the original requirement")
	}
}
