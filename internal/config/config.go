// Package config loads the weather server configuration from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/runeape-sats/x402-sol-member/svm"
)

// Config holds everything the weather server needs to run.
type Config struct {
	Port            string
	Network         string
	RPCURL          string
	PayTo           string
	Price           string
	Asset           string
	MemberToken     string
	MemberThreshold uint64
	ResourceRootURL string
	LogLevel        string
}

// Load reads configuration from the environment, applying defaults and
// validating addresses. PAY_TO is required; everything else has a
// working devnet default. MEMBER_THRESHOLD is in the membership mint's
// minor units.
func Load() (*Config, error) {
	port := getEnv("PORT", "4021")
	network := getEnv("NETWORK", svm.SolanaDevnet)

	netCfg, err := svm.GetNetworkConfig(network)
	if err != nil {
		return nil, err
	}

	payTo := os.Getenv("PAY_TO")
	if payTo == "" {
		return nil, fmt.Errorf("PAY_TO is required")
	}
	if !svm.ValidateAddress(payTo) {
		return nil, fmt.Errorf("PAY_TO is not a valid Solana address: %s", payTo)
	}

	asset := getEnv("ASSET", netCfg.DefaultAsset.Address)
	if !svm.ValidateAddress(asset) {
		return nil, fmt.Errorf("ASSET is not a valid Solana address: %s", asset)
	}

	memberToken := os.Getenv("MEMBER_TOKEN")
	if memberToken != "" && !svm.ValidateAddress(memberToken) {
		return nil, fmt.Errorf("MEMBER_TOKEN is not a valid Solana address: %s", memberToken)
	}

	var memberThreshold uint64
	if raw := os.Getenv("MEMBER_THRESHOLD"); raw != "" {
		memberThreshold, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MEMBER_THRESHOLD: %w", err)
		}
	}

	price := getEnv("PRICE", "0.01")
	if _, err := svm.ParseAmount(price, netCfg.DefaultAsset.Decimals); err != nil {
		return nil, fmt.Errorf("invalid PRICE: %w", err)
	}

	return &Config{
		Port:            port,
		Network:         network,
		RPCURL:          getEnv("RPC_URL", netCfg.RPCURL),
		PayTo:           payTo,
		Price:           price,
		Asset:           asset,
		MemberToken:     memberToken,
		MemberThreshold: memberThreshold,
		ResourceRootURL: getEnv("RESOURCE_ROOT_URL", "http://localhost:"+port),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
