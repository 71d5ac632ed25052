// Package svm implements Solana support for the x402 exact payment scheme.
// It covers both sides of the flow: clients build and sign SPL Token
// TransferChecked payment transactions, and resource servers evaluate
// presented payments through the Facilitator, which validates the
// transaction structure, checks membership balances, and broadcasts
// settled payments to the network.
package svm

import "github.com/gagliardetto/solana-go"

// Network identifiers accepted in payment requirements and headers.
const (
	SolanaMainnet = "solana"
	SolanaDevnet  = "solana-devnet"
	SolanaTestnet = "solana-testnet"
)

// MemoProgramAddress is the SPL Memo program. Payment transactions carry
// their reference string in a memo instruction for on-chain correlation.
const MemoProgramAddress = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// Circle USDC mint addresses.
const (
	USDCMainnetAddress = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCDevnetAddress  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
)

// USDCDecimals is the decimal precision of USDC mints on every Solana
// network. Transfers carrying any other precision are rejected.
const USDCDecimals uint8 = 6

// DefaultComputeUnitPrice is the priority fee attached to built payment
// transactions, in micro-lamports per compute unit.
const DefaultComputeUnitPrice uint64 = 1000

// MemoProgramID is the parsed form of MemoProgramAddress.
var MemoProgramID = solana.MustPublicKeyFromBase58(MemoProgramAddress)
