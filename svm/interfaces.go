package svm

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// BalanceOracle reports SPL token holdings. The facilitator asks it for
// the buyer's balance of the membership mint before validating payment.
type BalanceOracle interface {
	// GetTokenBalance returns the owner's total balance of the mint in
	// minor units, summed across all of the owner's token accounts.
	GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// Broadcaster submits signed transactions to the network.
type Broadcaster interface {
	// Submit sends the raw transaction bytes and returns the transaction
	// signature as reported by the network.
	Submit(ctx context.Context, rawTx []byte) (string, error)
}

// ClientSigner signs payment transactions on behalf of a buyer wallet.
type ClientSigner interface {
	// Address returns the signer's public key.
	Address() solana.PublicKey

	// SignTransaction adds the signer's signature to the transaction,
	// preserving any signatures already present.
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}
