package svm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AssetInfo describes an SPL token asset on a particular network.
type AssetInfo struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// NetworkConfig holds the per-network defaults used when building payment
// requirements and RPC clients.
type NetworkConfig struct {
	Name         string
	RPCURL       string
	DefaultAsset AssetInfo
}

var networkConfigs = map[string]NetworkConfig{
	SolanaMainnet: {
		Name:   SolanaMainnet,
		RPCURL: "https://api.mainnet-beta.solana.com",
		DefaultAsset: AssetInfo{
			Address:  USDCMainnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
	SolanaDevnet: {
		Name:   SolanaDevnet,
		RPCURL: "https://api.devnet.solana.com",
		DefaultAsset: AssetInfo{
			Address:  USDCDevnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
	SolanaTestnet: {
		Name:   SolanaTestnet,
		RPCURL: "https://api.testnet.solana.com",
		// Circle does not issue USDC on testnet; the devnet mint address is
		// the conventional stand-in.
		DefaultAsset: AssetInfo{
			Address:  USDCDevnetAddress,
			Symbol:   "USDC",
			Decimals: USDCDecimals,
		},
	},
}

// IsValidNetwork reports whether the network identifier names a supported
// Solana network.
func IsValidNetwork(network string) bool {
	_, ok := networkConfigs[network]
	return ok
}

// GetNetworkConfig returns the configuration for a supported network.
func GetNetworkConfig(network string) (NetworkConfig, error) {
	cfg, ok := networkConfigs[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unsupported network: %s", network)
	}
	return cfg, nil
}

// ValidateAddress reports whether the string is a well-formed base58
// Solana public key.
func ValidateAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}
