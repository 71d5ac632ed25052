package gin_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	x402 "github.com/runeape-sats/x402-sol-member"
	x402gin "github.com/runeape-sats/x402-sol-member/pkg/gin"
	"github.com/runeape-sats/x402-sol-member/svm"
)

var (
	payerKey   = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	sourceKey  = solana.MustPublicKeyFromBase58("5j8ym7LohPhHJZvVw2gvFuRmD8EPtZM5ZpW9JfPPYHYz")
	mintKey    = solana.MustPublicKeyFromBase58(svm.USDCDevnetAddress)
	destKey    = solana.MustPublicKeyFromBase58("AejHuZdNpDUiAiwuV2NKXz8K6eLzChYGpTcxptinWbar")
	memberMint = solana.MustPublicKeyFromBase58("GjJyKtw3BgkMvXTpVR1CZzDp6XZQkBpYDaFr4Bd6nKvT")

	testBlockhash = solana.MustHashFromBase58("11111111111111111111111111111111")
)

const memberThreshold uint64 = 1000000

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedBalanceOracle reports the same balance for every owner.
type fixedBalanceOracle uint64

func (o fixedBalanceOracle) GetTokenBalance(_ context.Context, _, _ solana.PublicKey) (uint64, error) {
	return uint64(o), nil
}

type fixedBroadcaster struct {
	txHash string
	calls  int
}

func (b *fixedBroadcaster) Submit(_ context.Context, _ []byte) (string, error) {
	b.calls++
	return b.txHash, nil
}

// buildTransferTx constructs a minimal payment transaction holding a
// single TransferChecked from sourceKey to destKey.
func buildTransferTx(amount uint64, decimals uint8, signed bool) *solana.Transaction {
	data := make([]byte, 10)
	data[0] = 12
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	var sigs []solana.Signature
	if signed {
		sigs = []solana.Signature{{1}}
	}
	return &solana.Transaction{
		Signatures: sigs,
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures: 1,
			},
			AccountKeys:     []solana.PublicKey{payerKey, sourceKey, mintKey, destKey, solana.TokenProgramID},
			RecentBlockhash: testBlockhash,
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIDIndex: 4,
					Accounts:       []uint16{1, 2, 3, 0},
					Data:           data,
				},
			},
		},
	}
}

func paymentHeader(t *testing.T, tx *solana.Transaction) string {
	t.Helper()
	txBase64, err := svm.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("Failed to encode transaction: %v", err)
	}
	header, err := x402.EncodePaymentHeader(&x402.PaymentHeaderPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     svm.SolanaDevnet,
		Payload: x402.ExactPaymentPayload{
			TxBase64:  txBase64,
			Reference: svm.NewReference(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to encode payment header: %v", err)
	}
	return header
}

func newWeatherRouter(t *testing.T, memberBalance uint64, broadcaster svm.Broadcaster, opts ...x402gin.Option) *gin.Engine {
	t.Helper()
	facilitator, err := svm.NewFacilitator(svm.FacilitatorConfig{
		MemberMint:      memberMint,
		MemberThreshold: memberThreshold,
		Oracle:          fixedBalanceOracle(memberBalance),
		Broadcaster:     broadcaster,
	})
	if err != nil {
		t.Fatalf("Failed to create facilitator: %v", err)
	}

	base := []x402gin.Option{
		x402gin.WithNetwork(svm.SolanaDevnet),
		x402gin.WithResourceRootURL("http://localhost:4021"),
		x402gin.WithMemberToken(memberMint.String(), memberThreshold),
	}

	router := gin.New()
	router.GET("/weather",
		x402gin.PaymentMiddleware(facilitator, "0.01", destKey.String(), append(base, opts...)...),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"temperatureF": 60})
		})
	return router
}

func doGet(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weather", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func decodeChallenge(t *testing.T, w *httptest.ResponseRecorder) *x402.PaymentRequirements {
	t.Helper()
	var reqs x402.PaymentRequirements
	if err := json.Unmarshal(w.Body.Bytes(), &reqs); err != nil {
		t.Fatalf("Failed to decode challenge body: %v", err)
	}
	return &reqs
}

func TestMiddlewareChallengesWithoutPayment(t *testing.T) {
	router := newWeatherRouter(t, 0, &fixedBroadcaster{})

	w := doGet(router, nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402, got %d", w.Code)
	}

	reqs := decodeChallenge(t, w)
	if reqs.X402Version != 1 {
		t.Errorf("Expected x402Version 1, got %d", reqs.X402Version)
	}
	if reqs.Error != "X-PAYMENT header is required" {
		t.Errorf("Unexpected error message: %q", reqs.Error)
	}
	if len(reqs.Accepts) != 1 {
		t.Fatalf("Expected 1 requirement, got %d", len(reqs.Accepts))
	}

	req := reqs.Accepts[0]
	if req.Scheme != "exact" {
		t.Errorf("Expected scheme exact, got %s", req.Scheme)
	}
	if req.Network != svm.SolanaDevnet {
		t.Errorf("Expected network %s, got %s", svm.SolanaDevnet, req.Network)
	}
	if req.MaxAmountRequired != "10000" {
		t.Errorf("Expected maxAmountRequired 10000, got %s", req.MaxAmountRequired)
	}
	if req.Asset != svm.USDCDevnetAddress {
		t.Errorf("Expected devnet USDC asset, got %s", req.Asset)
	}
	if req.PayTo != destKey.String() {
		t.Errorf("Expected payTo %s, got %s", destKey, req.PayTo)
	}
	if req.Resource != "http://localhost:4021/weather" {
		t.Errorf("Unexpected resource: %s", req.Resource)
	}
	if req.MimeType != "application/json" {
		t.Errorf("Expected application/json, got %s", req.MimeType)
	}
	if req.Extra == nil || req.Extra.MemberToken != memberMint.String() {
		t.Errorf("Expected member token %s in extra, got %+v", memberMint, req.Extra)
	}
	if req.Extra.MemberThreshold != "1000000" {
		t.Errorf("Expected member threshold 1000000, got %s", req.Extra.MemberThreshold)
	}
}

func TestMiddlewareServesPaywallToBrowsers(t *testing.T) {
	router := newWeatherRouter(t, 0, &fixedBroadcaster{})

	w := doGet(router, map[string]string{
		"Accept":     "text/html,application/xhtml+xml",
		"User-Agent": "Mozilla/5.0",
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Expected text/html content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "Payment Required") {
		t.Errorf("Expected paywall page, got %s", w.Body.String())
	}
}

func TestMiddlewareServesCustomPaywall(t *testing.T) {
	router := newWeatherRouter(t, 0, &fixedBroadcaster{},
		x402gin.WithCustomPaywallHTML("<html><body>Pay up</body></html>"))

	w := doGet(router, map[string]string{
		"Accept":     "text/html",
		"User-Agent": "Mozilla/5.0",
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Pay up") {
		t.Errorf("Expected custom paywall, got %s", w.Body.String())
	}
}

func TestMiddlewareSettlesValidPayment(t *testing.T) {
	broadcaster := &fixedBroadcaster{txHash: "abc123"}
	router := newWeatherRouter(t, 0, broadcaster)

	header := paymentHeader(t, buildTransferTx(10000, 6, true))
	w := doGet(router, map[string]string{"X-PAYMENT": header})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["temperatureF"] != 60 {
		t.Errorf("Expected temperatureF 60, got %d", body["temperatureF"])
	}
	if broadcaster.calls != 1 {
		t.Errorf("Expected 1 broadcast, got %d", broadcaster.calls)
	}

	encoded := w.Header().Get("X-PAYMENT-RESPONSE")
	if encoded == "" {
		t.Fatal("Expected X-PAYMENT-RESPONSE header")
	}
	receipt, err := x402.DecodePaymentReceiptFromBase64(encoded)
	if err != nil {
		t.Fatalf("Failed to decode receipt: %v", err)
	}
	if receipt.TxHash != "abc123" {
		t.Errorf("Expected txHash abc123, got %s", receipt.TxHash)
	}
	if receipt.MemberAccess {
		t.Error("Expected a settled receipt, not member access")
	}
	if _, err := time.Parse(time.RFC3339, receipt.SettledAt); err != nil {
		t.Errorf("Expected RFC 3339 settledAt, got %q: %v", receipt.SettledAt, err)
	}
}

func TestMiddlewareRejectsUnderpayment(t *testing.T) {
	broadcaster := &fixedBroadcaster{txHash: "abc123"}
	router := newWeatherRouter(t, 0, broadcaster)

	header := paymentHeader(t, buildTransferTx(9999, 6, true))
	w := doGet(router, map[string]string{"X-PAYMENT": header})

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402, got %d", w.Code)
	}
	if broadcaster.calls != 0 {
		t.Errorf("Expected no broadcast, got %d", broadcaster.calls)
	}

	reqs := decodeChallenge(t, w)
	if !strings.Contains(reqs.Error, "amount") {
		t.Errorf("Expected amount mismatch error, got %q", reqs.Error)
	}
	if len(reqs.Accepts) != 1 || reqs.Accepts[0].MaxAmountRequired != "10000" {
		t.Error("Expected the re-challenge to carry the original requirements")
	}
}

func TestMiddlewareGrantsMemberAccess(t *testing.T) {
	broadcaster := &fixedBroadcaster{txHash: "abc123"}
	router := newWeatherRouter(t, memberThreshold+1, broadcaster)

	// Unsigned and underpays. Membership makes both irrelevant.
	header := paymentHeader(t, buildTransferTx(1, 6, false))
	w := doGet(router, map[string]string{"X-PAYMENT": header})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if broadcaster.calls != 0 {
		t.Errorf("Expected no broadcast for member access, got %d", broadcaster.calls)
	}

	receipt, err := x402.DecodePaymentReceiptFromBase64(w.Header().Get("X-PAYMENT-RESPONSE"))
	if err != nil {
		t.Fatalf("Failed to decode receipt: %v", err)
	}
	if !receipt.MemberAccess {
		t.Error("Expected member access receipt")
	}
	if receipt.TxHash != "" {
		t.Errorf("Expected no txHash, got %s", receipt.TxHash)
	}
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	router := newWeatherRouter(t, 0, &fixedBroadcaster{})

	w := doGet(router, map[string]string{"X-PAYMENT": "!!!not-base64!!!"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402, got %d", w.Code)
	}
	reqs := decodeChallenge(t, w)
	if reqs.Error == "" {
		t.Error("Expected a rejection reason in the challenge")
	}
}

func TestMiddlewareMisconfiguration(t *testing.T) {
	router := newWeatherRouter(t, 0, &fixedBroadcaster{},
		x402gin.WithNetwork("solana-bogus"))
	w := doGet(router, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for unknown network, got %d", w.Code)
	}

	facilitator, err := svm.NewFacilitator(svm.FacilitatorConfig{
		Oracle:      fixedBalanceOracle(0),
		Broadcaster: &fixedBroadcaster{},
	})
	if err != nil {
		t.Fatalf("Failed to create facilitator: %v", err)
	}
	badPrice := gin.New()
	badPrice.GET("/weather", x402gin.PaymentMiddleware(facilitator, "not-a-price", destKey.String()))
	w = doGet(badPrice, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for invalid price, got %d", w.Code)
	}
}
