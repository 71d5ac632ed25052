package svm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"

	x402 "github.com/runeape-sats/x402-sol-member"
)

// ClientConfig carries optional overrides for payment building.
type ClientConfig struct {
	// RPCURL overrides the network's default RPC endpoint.
	RPCURL string
}

// Client builds signed payment transactions for a buyer wallet.
type Client struct {
	signer ClientSigner
	config *ClientConfig
}

// NewClient creates a payment client around a signer.
func NewClient(signer ClientSigner, config *ClientConfig) (*Client, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	return &Client{signer: signer, config: config}, nil
}

// PaymentDraft is a signed payment transaction and the reference that
// identifies this payment attempt.
type PaymentDraft struct {
	Transaction *solana.Transaction
	Reference   string
	Scheme      string
	Network     string
}

// Header encodes the draft as an X-PAYMENT header value.
func (d *PaymentDraft) Header() (string, error) {
	txBase64, err := EncodeTransaction(d.Transaction)
	if err != nil {
		return "", err
	}
	return x402.EncodePaymentHeader(&x402.PaymentHeaderPayload{
		X402Version: x402.X402Version,
		Scheme:      d.Scheme,
		Network:     d.Network,
		Payload: x402.ExactPaymentPayload{
			TxBase64:  txBase64,
			Reference: d.Reference,
		},
	})
}

// NewReference generates a payment reference for a single attempt.
func NewReference() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreatePayment builds and signs a payment transaction satisfying the
// requirement: an SPL Token TransferChecked of the exact amount from the
// buyer's token account to the payTo account, with the payment reference
// attached as a memo. The buyer is the fee payer.
func (c *Client) CreatePayment(ctx context.Context, requirement x402.PaymentRequirement) (*PaymentDraft, error) {
	if requirement.Scheme != x402.SchemeExact {
		return nil, fmt.Errorf("unsupported scheme: %s", requirement.Scheme)
	}

	config, err := GetNetworkConfig(requirement.Network)
	if err != nil {
		return nil, err
	}

	rpcURL := config.RPCURL
	if c.config != nil && c.config.RPCURL != "" {
		rpcURL = c.config.RPCURL
	}
	rpcClient := rpc.New(rpcURL)

	mintPubkey, err := solana.PublicKeyFromBase58(requirement.Asset)
	if err != nil {
		return nil, fmt.Errorf("invalid asset address: %w", err)
	}
	payToPubkey, err := solana.PublicKeyFromBase58(requirement.PayTo)
	if err != nil {
		return nil, fmt.Errorf("invalid payTo address: %w", err)
	}
	amount, err := strconv.ParseUint(requirement.MaxAmountRequired, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	mintAccount, err := rpcClient.GetAccountInfo(ctx, mintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get mint account: %w", err)
	}
	if !mintAccount.Value.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("asset mint is not owned by the SPL token program")
	}

	var mintData token.Mint
	if err := bin.NewBinDecoder(mintAccount.Value.Data.GetBinary()).Decode(&mintData); err != nil {
		return nil, fmt.Errorf("failed to decode mint data: %w", err)
	}

	// Source is the buyer's associated token account for the mint.
	sourceATA, _, err := solana.FindAssociatedTokenAddress(c.signer.Address(), mintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	sourceAccount, err := rpcClient.GetAccountInfo(ctx, sourceATA)
	if err != nil || sourceAccount == nil || sourceAccount.Value == nil {
		return nil, fmt.Errorf("source token account does not exist for buyer %s", c.signer.Address())
	}

	// The payTo address is the seller's token account itself, not a
	// wallet to derive from. Confirm it exists and holds the right mint.
	destAccount, err := rpcClient.GetAccountInfo(ctx, payToPubkey)
	if err != nil || destAccount == nil || destAccount.Value == nil {
		return nil, fmt.Errorf("destination token account %s does not exist", requirement.PayTo)
	}
	var destData token.Account
	if err := bin.NewBinDecoder(destAccount.Value.Data.GetBinary()).Decode(&destData); err != nil {
		return nil, fmt.Errorf("failed to decode destination token account: %w", err)
	}
	if !destData.Mint.Equals(mintPubkey) {
		return nil, fmt.Errorf("destination token account holds mint %s, want %s", destData.Mint, mintPubkey)
	}

	latestBlockhash, err := rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	recentBlockhash := latestBlockhash.Value.Blockhash

	// Hardcoded compute units for 4 instructions (ComputeLimit +
	// ComputePrice + TransferChecked + Memo).
	const estimatedUnits uint32 = 10000

	cuLimit, err := computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(estimatedUnits).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build compute limit instruction: %w", err)
	}

	cuPrice, err := computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(DefaultComputeUnitPrice).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build compute price instruction: %w", err)
	}

	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(amount).
		SetDecimals(mintData.Decimals).
		SetSourceAccount(sourceATA).
		SetMintAccount(mintPubkey).
		SetDestinationAccount(payToPubkey).
		SetOwnerAccount(c.signer.Address()).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}

	reference := NewReference()
	memoIx := solana.NewInstruction(
		MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(c.signer.Address()).SIGNER()},
		[]byte(reference),
	)

	tx, err := solana.NewTransactionBuilder().
		AddInstruction(cuLimit).
		AddInstruction(cuPrice).
		AddInstruction(transferIx).
		AddInstruction(memoIx).
		SetRecentBlockHash(recentBlockhash).
		SetFeePayer(c.signer.Address()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := c.signer.SignTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return &PaymentDraft{
		Transaction: tx,
		Reference:   reference,
		Scheme:      requirement.Scheme,
		Network:     requirement.Network,
	}, nil
}
