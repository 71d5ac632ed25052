package svm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SignTransactionFunc is the callback used to sign payment transactions.
type SignTransactionFunc func(ctx context.Context, tx *solana.Transaction) error

// CallbackSigner implements ClientSigner around a signing callback, so
// wallets that hold keys elsewhere can plug in their own signing.
type CallbackSigner struct {
	publicKey       solana.PublicKey
	signTransaction SignTransactionFunc
}

// NewCallbackSigner creates a signer from a public key and a signing
// callback.
func NewCallbackSigner(publicKey solana.PublicKey, signFunc SignTransactionFunc) (ClientSigner, error) {
	if publicKey.IsZero() {
		return nil, fmt.Errorf("public key is required")
	}
	if signFunc == nil {
		return nil, fmt.Errorf("sign callback is required")
	}
	return &CallbackSigner{
		publicKey:       publicKey,
		signTransaction: signFunc,
	}, nil
}

// NewSignerFromPrivateKey creates a signer that signs locally with a
// base58-encoded Solana private key.
func NewSignerFromPrivateKey(privateKeyBase58 string) (ClientSigner, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	signFunc := func(ctx context.Context, tx *solana.Transaction) error {
		return signTransactionWithPrivateKey(ctx, privateKey, tx)
	}
	return NewCallbackSigner(privateKey.PublicKey(), signFunc)
}

// Address returns the signer's public key.
func (s *CallbackSigner) Address() solana.PublicKey {
	return s.publicKey
}

// SignTransaction adds the signer's signature to the transaction at the
// index the message assigns to its public key.
func (s *CallbackSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	return s.signTransaction(ctx, tx)
}

func signTransactionWithPrivateKey(_ context.Context, privateKey solana.PrivateKey, tx *solana.Transaction) error {
	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	signature, err := privateKey.Sign(messageBytes)
	if err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}

	accountIndex, err := tx.GetAccountIndex(privateKey.PublicKey())
	if err != nil {
		return fmt.Errorf("failed to get account index: %w", err)
	}

	if len(tx.Signatures) <= int(accountIndex) {
		newSignatures := make([]solana.Signature, accountIndex+1)
		copy(newSignatures, tx.Signatures)
		tx.Signatures = newSignatures
	}
	tx.Signatures[accountIndex] = signature

	return nil
}
