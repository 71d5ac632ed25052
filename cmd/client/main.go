package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	x402 "github.com/runeape-sats/x402-sol-member"
	"github.com/runeape-sats/x402-sol-member/svm"
)

// Buyer CLI for payment gated resources. Fetches the 402 challenge,
// builds and signs the payment transaction, then retries the request
// with the X-PAYMENT header and prints the body and receipt.
func main() {
	godotenv.Load()

	url := flag.String("url", "http://localhost:4021/weather", "resource URL to fetch")
	key := flag.String("key", os.Getenv("PRIVATE_KEY"), "base58 private key of the buyer wallet")
	rpcURL := flag.String("rpc", "", "Solana RPC endpoint override")
	flag.Parse()

	if *key == "" {
		log.Fatal("buyer private key required (-key or PRIVATE_KEY)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	requirements, err := fetchChallenge(ctx, *url)
	if err != nil {
		log.Fatalf("failed to fetch payment challenge: %v", err)
	}
	requirement := requirements.Accepts[0]
	fmt.Printf("Challenge: %s %s on %s to %s\n",
		requirement.MaxAmountRequired, requirement.Asset, requirement.Network, requirement.PayTo)
	if requirement.Extra != nil && requirement.Extra.MemberToken != "" {
		fmt.Printf("Membership: hold more than %s of %s to skip payment\n",
			requirement.Extra.MemberThreshold, requirement.Extra.MemberToken)
	}

	signer, err := svm.NewSignerFromPrivateKey(*key)
	if err != nil {
		log.Fatalf("invalid private key: %v", err)
	}

	client, err := svm.NewClient(signer, &svm.ClientConfig{RPCURL: *rpcURL})
	if err != nil {
		log.Fatal(err)
	}

	draft, err := client.CreatePayment(ctx, requirement)
	if err != nil {
		log.Fatalf("failed to build payment: %v", err)
	}
	fmt.Printf("Payment built: reference %s, payer %s\n", draft.Reference, signer.Address())

	header, err := draft.Header()
	if err != nil {
		log.Fatalf("failed to encode payment header: %v", err)
	}

	status, body, receipt, err := fetchWithPayment(ctx, *url, header)
	if err != nil {
		log.Fatalf("paid request failed: %v", err)
	}

	fmt.Printf("Response: %d\n%s\n", status, body)
	if receipt == nil {
		return
	}
	if receipt.MemberAccess {
		fmt.Printf("Receipt: member access granted at %s\n", receipt.SettledAt)
	} else {
		fmt.Printf("Receipt: settled %s at %s\n", receipt.TxHash, receipt.SettledAt)
	}
}

// fetchChallenge performs the unpaid request and decodes the 402 body.
func fetchChallenge(ctx context.Context, url string) (*x402.PaymentRequirements, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, fmt.Errorf("expected 402 challenge, got %d", resp.StatusCode)
	}

	var requirements x402.PaymentRequirements
	if err := json.NewDecoder(resp.Body).Decode(&requirements); err != nil {
		return nil, fmt.Errorf("invalid challenge body: %w", err)
	}
	if len(requirements.Accepts) == 0 {
		return nil, fmt.Errorf("challenge carries no payment requirements")
	}
	return &requirements, nil
}

// fetchWithPayment retries the request carrying the payment header and
// decodes the settlement receipt if one is attached.
func fetchWithPayment(ctx context.Context, url, paymentHeader string) (int, string, *x402.PaymentReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("X-PAYMENT", paymentHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, err
	}

	var receipt *x402.PaymentReceipt
	if encoded := resp.Header.Get("X-PAYMENT-RESPONSE"); encoded != "" {
		receipt, err = x402.DecodePaymentReceiptFromBase64(encoded)
		if err != nil {
			return resp.StatusCode, string(body), nil, fmt.Errorf("invalid receipt header: %w", err)
		}
	}
	return resp.StatusCode, string(body), receipt, nil
}
