package svm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SPL Token TransferChecked instruction layout: one discriminator byte,
// a little-endian u64 amount, and a decimals byte.
const (
	transferCheckedDiscriminator byte = 12
	transferCheckedDataLen            = 10
	transferCheckedAccountCount       = 4
)

// TransferChecked is the decoded form of an SPL Token TransferChecked
// instruction found inside a payment transaction.
type TransferChecked struct {
	Source      solana.PublicKey
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Owner       solana.PublicKey
	Amount      uint64
	Decimals    uint8
}

// DecodeTransaction parses a base64-encoded wire transaction. It returns
// the parsed transaction together with the raw bytes, which are what gets
// submitted to the network at settlement time.
func DecodeTransaction(txBase64 string) (*solana.Transaction, []byte, error) {
	txBytes, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base64 transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, txBytes, nil
}

// EncodeTransaction serializes a transaction to the base64 wire form
// carried in the X-PAYMENT header.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	serialized, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(serialized), nil
}

// ExtractFeePayer returns the transaction's fee payer, the first account
// in the message. In the exact payment scheme this is the buyer's wallet.
func ExtractFeePayer(tx *solana.Transaction) (solana.PublicKey, error) {
	if len(tx.Message.AccountKeys) == 0 {
		return solana.PublicKey{}, fmt.Errorf("transaction has no accounts")
	}
	if tx.Message.Header.NumRequiredSignatures == 0 {
		return solana.PublicKey{}, fmt.Errorf("transaction requires no signatures")
	}
	return tx.Message.AccountKeys[0], nil
}

// HasFeePayerSignature reports whether a signature is present in the fee
// payer's slot. Only presence is checked here; cryptographic verification
// is left to the network at broadcast time.
func HasFeePayerSignature(tx *solana.Transaction) bool {
	return len(tx.Signatures) > 0 && !tx.Signatures[0].IsZero()
}

// FindTransferChecked walks the transaction's instructions and decodes
// every well-formed SPL Token TransferChecked it finds. Instructions
// targeting other programs, carrying other token operations, or with
// out-of-range account indices are skipped.
func FindTransferChecked(tx *solana.Transaction) []TransferChecked {
	var transfers []TransferChecked
	keys := tx.Message.AccountKeys

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		if !keys[inst.ProgramIDIndex].Equals(solana.TokenProgramID) {
			continue
		}

		amount, decimals, ok := decodeTransferCheckedData(inst.Data)
		if !ok {
			continue
		}
		if len(inst.Accounts) < transferCheckedAccountCount {
			continue
		}

		// Account order fixed by the token program: source, mint,
		// destination, owner.
		indexesValid := true
		for _, idx := range inst.Accounts[:transferCheckedAccountCount] {
			if int(idx) >= len(keys) {
				indexesValid = false
				break
			}
		}
		if !indexesValid {
			continue
		}

		transfers = append(transfers, TransferChecked{
			Source:      keys[inst.Accounts[0]],
			Mint:        keys[inst.Accounts[1]],
			Destination: keys[inst.Accounts[2]],
			Owner:       keys[inst.Accounts[3]],
			Amount:      amount,
			Decimals:    decimals,
		})
	}
	return transfers
}

func decodeTransferCheckedData(data []byte) (uint64, uint8, bool) {
	if len(data) < transferCheckedDataLen || data[0] != transferCheckedDiscriminator {
		return 0, 0, false
	}
	amount := binary.LittleEndian.Uint64(data[1:9])
	return amount, data[9], true
}
