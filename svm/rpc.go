package svm

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCBalanceOracle answers balance queries against a Solana RPC node.
type RPCBalanceOracle struct {
	client *rpc.Client
}

// NewRPCBalanceOracle creates a balance oracle backed by the given RPC client.
func NewRPCBalanceOracle(client *rpc.Client) *RPCBalanceOracle {
	return &RPCBalanceOracle{client: client}
}

// GetTokenBalance sums the owner's balances across every token account
// holding the given mint.
func (o *RPCBalanceOracle) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	out, err := o.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{
			ProgramId: solana.TokenProgramID.ToPointer(),
		},
		&rpc.GetTokenAccountsOpts{
			Encoding: solana.EncodingBase64,
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get token accounts for %s: %w", owner, err)
	}

	var balance uint64
	for _, acct := range out.Value {
		var tokenAccount token.Account
		if err := bin.NewBinDecoder(acct.Account.Data.GetBinary()).Decode(&tokenAccount); err != nil {
			continue
		}
		if tokenAccount.Mint.Equals(mint) {
			balance += tokenAccount.Amount
		}
	}
	return balance, nil
}

// RPCBroadcaster submits transactions through a Solana RPC node.
type RPCBroadcaster struct {
	client *rpc.Client
}

// NewRPCBroadcaster creates a broadcaster backed by the given RPC client.
func NewRPCBroadcaster(client *rpc.Client) *RPCBroadcaster {
	return &RPCBroadcaster{client: client}
}

// Submit sends the raw transaction bytes with preflight disabled.
func (b *RPCBroadcaster) Submit(ctx context.Context, rawTx []byte) (string, error) {
	sig, err := b.client.SendRawTransactionWithOpts(ctx, rawTx, rpc.TransactionOpts{
		SkipPreflight: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return sig.String(), nil
}
