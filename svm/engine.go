package svm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	x402 "github.com/runeape-sats/x402-sol-member"
	"github.com/runeape-sats/x402-sol-member/logger"
	"github.com/runeape-sats/x402-sol-member/metrics"
)

// Outcome is the result of evaluating a presented payment. It is exactly
// one of MemberGranted, Settled, or Rejected.
type Outcome interface {
	settlementOutcome()
}

// MemberGranted means the buyer's membership balance cleared the
// threshold and access was granted without settling the payment.
type MemberGranted struct {
	Payer     solana.PublicKey
	GrantedAt time.Time
}

// Settled means the payment transaction was validated and broadcast.
type Settled struct {
	TxHash    string
	Network   string
	SettledAt time.Time
}

// Rejected means the payment cannot be accepted. Code is one of the
// payment error codes; Reason is safe to return to the buyer.
type Rejected struct {
	Code   string
	Reason string
}

func (MemberGranted) settlementOutcome() {}
func (Settled) settlementOutcome()       {}
func (Rejected) settlementOutcome()      {}

// Receipt builds the settlement receipt carried back to the buyer in the
// X-PAYMENT-RESPONSE header.
func (o Settled) Receipt() x402.PaymentReceipt {
	return x402.PaymentReceipt{
		TxHash:    o.TxHash,
		SettledAt: o.SettledAt.Format(time.RFC3339),
	}
}

// Receipt builds the member-access receipt carried back to the buyer in
// the X-PAYMENT-RESPONSE header.
func (o MemberGranted) Receipt() x402.PaymentReceipt {
	return x402.PaymentReceipt{
		MemberAccess: true,
		SettledAt:    o.GrantedAt.Format(time.RFC3339),
	}
}

// FacilitatorConfig wires a Facilitator's dependencies.
type FacilitatorConfig struct {
	// MemberMint is the SPL token whose holders bypass payment. A zero
	// value disables the membership gate.
	MemberMint solana.PublicKey

	// MemberThreshold is the balance a holder must exceed, in minor
	// units. Holding exactly the threshold does not qualify.
	MemberThreshold uint64

	Oracle      BalanceOracle
	Broadcaster Broadcaster

	// Ledger guards against reference replay. Defaults to an in-memory
	// ledger with the default TTL.
	Ledger *ReferenceLedger

	Logger  logger.Logger
	Metrics metrics.Recorder
}

// Facilitator evaluates presented payments for a resource server. Each
// evaluation either grants member access, settles the payment on-chain,
// or rejects it with a reason.
type Facilitator struct {
	memberMint      solana.PublicKey
	memberThreshold uint64
	oracle          BalanceOracle
	broadcaster     Broadcaster
	ledger          *ReferenceLedger
	log             logger.Logger
	rec             metrics.Recorder
}

// NewFacilitator creates a facilitator from the config. The oracle and
// broadcaster are required; everything else has working defaults.
func NewFacilitator(cfg FacilitatorConfig) (*Facilitator, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("balance oracle is required")
	}
	if cfg.Broadcaster == nil {
		return nil, fmt.Errorf("broadcaster is required")
	}
	if cfg.Ledger == nil {
		cfg.Ledger = NewReferenceLedger(DefaultReferenceTTL)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NoopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopRecorder{}
	}
	return &Facilitator{
		memberMint:      cfg.MemberMint,
		memberThreshold: cfg.MemberThreshold,
		oracle:          cfg.Oracle,
		broadcaster:     cfg.Broadcaster,
		ledger:          cfg.Ledger,
		log:             cfg.Logger,
		rec:             cfg.Metrics,
	}, nil
}

// Evaluate runs a presented X-PAYMENT header value through the full
// payment pipeline against the server's published requirements: header
// decode, protocol envelope agreement, transaction decode, membership
// check, structural validation, replay guard, and broadcast.
//
// Membership is checked before structural validation, so a qualifying
// member is granted access even when the attached transfer would not
// validate, and nothing is broadcast on their behalf.
func (f *Facilitator) Evaluate(ctx context.Context, headerValue string, requirements *x402.PaymentRequirements) Outcome {
	if requirements == nil || len(requirements.Accepts) == 0 {
		return f.reject("", x402.ErrCodeInvalidRequirements, "no payment requirements available")
	}
	requirement := requirements.Accepts[0]
	labels := map[string]string{"network": requirement.Network}

	start := time.Now()
	defer func() {
		f.rec.ObserveLatency("evaluate", time.Since(start), labels)
	}()

	payload, err := x402.DecodePaymentHeader(headerValue)
	if err != nil {
		var perr *x402.PaymentError
		if errors.As(err, &perr) {
			return f.reject(requirement.Network, perr.Code, "%s", perr.Message)
		}
		return f.reject(requirement.Network, x402.ErrCodeMalformedHeader, "invalid payment header: %v", err)
	}

	if payload.X402Version != requirements.X402Version {
		return f.reject(requirement.Network, x402.ErrCodeProtocolMismatch,
			"unsupported x402 version: got %d, want %d", payload.X402Version, requirements.X402Version)
	}
	if payload.Scheme != requirement.Scheme {
		return f.reject(requirement.Network, x402.ErrCodeProtocolMismatch,
			"unsupported scheme: got %s, want %s", payload.Scheme, requirement.Scheme)
	}
	if payload.Network != requirement.Network {
		return f.reject(requirement.Network, x402.ErrCodeProtocolMismatch,
			"unsupported network: got %s, want %s", payload.Network, requirement.Network)
	}

	tx, rawTx, err := DecodeTransaction(payload.Payload.TxBase64)
	if err != nil {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure, "invalid transaction: %v", err)
	}
	feePayer, err := ExtractFeePayer(tx)
	if err != nil {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure, "invalid transaction: %v", err)
	}

	if !f.memberMint.IsZero() {
		balance, err := f.oracle.GetTokenBalance(ctx, feePayer, f.memberMint)
		if err != nil {
			return f.reject(requirement.Network, x402.ErrCodeNetworkFailure, "membership lookup failed: %v", err)
		}
		if balance > f.memberThreshold {
			f.log.Info("member access granted", map[string]any{
				"payer":   feePayer.String(),
				"balance": balance,
			})
			f.rec.IncCounter("member_granted", labels)
			return MemberGranted{Payer: feePayer, GrantedAt: time.Now().UTC()}
		}
	}

	requiredAmount, err := strconv.ParseUint(requirement.MaxAmountRequired, 10, 64)
	if err != nil {
		return f.reject(requirement.Network, x402.ErrCodeInvalidRequirements,
			"invalid required amount %q: %v", requirement.MaxAmountRequired, err)
	}
	payTo, err := solana.PublicKeyFromBase58(requirement.PayTo)
	if err != nil {
		return f.reject(requirement.Network, x402.ErrCodeInvalidRequirements,
			"invalid payTo address %q: %v", requirement.PayTo, err)
	}
	asset, err := solana.PublicKeyFromBase58(requirement.Asset)
	if err != nil {
		return f.reject(requirement.Network, x402.ErrCodeInvalidRequirements,
			"invalid asset address %q: %v", requirement.Asset, err)
	}

	transfers := FindTransferChecked(tx)
	if len(transfers) == 0 {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"no token transfer instruction found")
	}
	if len(transfers) > 1 {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"expected exactly one token transfer instruction, found %d", len(transfers))
	}
	transfer := transfers[0]

	if transfer.Amount != requiredAmount {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"transfer amount mismatch: got %d, want %d", transfer.Amount, requiredAmount)
	}
	if !transfer.Destination.Equals(payTo) {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"transfer destination mismatch: got %s, want %s", transfer.Destination, payTo)
	}
	if !transfer.Mint.Equals(asset) {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"transfer mint mismatch: got %s, want %s", transfer.Mint, asset)
	}
	if transfer.Decimals != USDCDecimals {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"transfer decimals mismatch: got %d, want %d", transfer.Decimals, USDCDecimals)
	}
	if !HasFeePayerSignature(tx) {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"fee payer signature missing")
	}

	reference := payload.Payload.Reference
	if !f.ledger.Claim(reference) {
		return f.reject(requirement.Network, x402.ErrCodeValidationFailure,
			"payment reference already used: %s", reference)
	}

	broadcastStart := time.Now()
	txHash, err := f.broadcaster.Submit(ctx, rawTx)
	f.rec.ObserveLatency("broadcast", time.Since(broadcastStart), labels)
	if err != nil {
		f.ledger.Release(reference)
		return f.reject(requirement.Network, x402.ErrCodeNetworkFailure,
			"failed to broadcast transaction: %v", err)
	}
	f.ledger.Settle(reference)

	settledAt := time.Now().UTC()
	f.log.Info("payment settled", map[string]any{
		"txHash":    txHash,
		"payer":     feePayer.String(),
		"amount":    transfer.Amount,
		"reference": reference,
	})
	f.rec.IncCounter("settled", labels)

	return Settled{TxHash: txHash, Network: requirement.Network, SettledAt: settledAt}
}

func (f *Facilitator) reject(network, code, format string, args ...any) Rejected {
	reason := fmt.Sprintf(format, args...)
	f.log.Warn("payment rejected", map[string]any{
		"code":   code,
		"reason": reason,
	})
	f.rec.IncCounter("rejected", map[string]string{"network": network})
	return Rejected{Code: code, Reason: reason}
}
