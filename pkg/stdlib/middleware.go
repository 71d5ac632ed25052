// Package stdlib provides net/http middleware that gates handlers behind
// x402 payments settled on Solana, with optional membership bypass.
package stdlib

import (
	"encoding/json"
	"net/http"
	"strings"

	x402 "github.com/runeape-sats/x402-sol-member"
	"github.com/runeape-sats/x402-sol-member/logger"
	"github.com/runeape-sats/x402-sol-member/svm"
)

// PaymentMiddlewareOptions is the options for the PaymentMiddleware.
type PaymentMiddlewareOptions struct {
	Network           string
	Asset             string
	Description       string
	MimeType          string
	MaxTimeoutSeconds int
	Resource          string
	ResourceRootURL   string
	MemberToken       string
	MemberThreshold   uint64
	CustomPaywallHTML string
	Logger            logger.Logger
}

// Option configures the PaymentMiddleware.
type Option func(*PaymentMiddlewareOptions)

// WithNetwork sets the Solana network the payment must settle on.
func WithNetwork(network string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.Network = network
	}
}

// WithAsset overrides the network's default payment mint.
func WithAsset(asset string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.Asset = asset
	}
}

// WithDescription sets the human-readable requirement description.
func WithDescription(description string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.Description = description
	}
}

// WithMimeType sets the mime type advertised for the gated resource.
func WithMimeType(mimeType string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.MimeType = mimeType
	}
}

// WithMaxTimeoutSeconds sets the settlement window advertised to buyers.
func WithMaxTimeoutSeconds(maxTimeoutSeconds int) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.MaxTimeoutSeconds = maxTimeoutSeconds
	}
}

// WithResource pins the advertised resource URL instead of deriving it
// from the request path.
func WithResource(resource string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.Resource = resource
	}
}

// WithResourceRootURL sets the base URL prepended to request paths when
// deriving the resource URL.
func WithResourceRootURL(resourceRootURL string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.ResourceRootURL = resourceRootURL
	}
}

// WithMemberToken advertises the membership mint and threshold buyers can
// hold to bypass payment.
func WithMemberToken(mint string, threshold uint64) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.MemberToken = mint
		options.MemberThreshold = threshold
	}
}

// WithCustomPaywallHTML sets the paywall page served to browsers.
func WithCustomPaywallHTML(customPaywallHTML string) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.CustomPaywallHTML = customPaywallHTML
	}
}

// WithLogger sets the middleware logger.
func WithLogger(log logger.Logger) Option {
	return func(options *PaymentMiddlewareOptions) {
		options.Logger = log
	}
}

// PaymentMiddleware gates the wrapped handler behind an x402 payment
// evaluated by the facilitator. Price is the decimal denominated amount
// to charge (ex: 0.01 for 1 cent) and payTo is the seller's token
// account.
//
// Requests without an X-PAYMENT header receive a 402 challenge carrying
// the payment requirements. Presented payments run through the
// facilitator; rejections re-issue the 402 challenge with an error, and
// accepted payments reach the handler with an X-PAYMENT-RESPONSE receipt
// header on the response.
func PaymentMiddleware(facilitator *svm.Facilitator, price string, payTo string, opts ...Option) func(http.Handler) http.Handler {
	options := &PaymentMiddlewareOptions{
		Network:           svm.SolanaDevnet,
		MimeType:          x402.MimeTypeJSON,
		MaxTimeoutSeconds: x402.DefaultMaxTimeoutSeconds,
		Logger:            logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(options)
	}
	log := options.Logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			netCfg, err := svm.GetNetworkConfig(options.Network)
			if err != nil {
				writeErrorResponse(w, http.StatusInternalServerError, err.Error())
				return
			}

			asset := options.Asset
			if asset == "" {
				asset = netCfg.DefaultAsset.Address
			}

			priceUnits, err := svm.ParseAmount(price, netCfg.DefaultAsset.Decimals)
			if err != nil {
				log.Error("invalid price", map[string]any{"price": price, "error": err.Error()})
				writeErrorResponse(w, http.StatusInternalServerError, err.Error())
				return
			}

			resource := options.Resource
			if resource == "" {
				resource = options.ResourceRootURL + r.URL.Path
			}

			requirements, err := x402.BuildPaymentRequirements(x402.RequirementConfig{
				Resource:          resource,
				PriceMinorUnits:   priceUnits,
				Asset:             asset,
				PayTo:             payTo,
				Network:           options.Network,
				Description:       options.Description,
				MimeType:          options.MimeType,
				MaxTimeoutSeconds: options.MaxTimeoutSeconds,
				MemberToken:       options.MemberToken,
				MemberThreshold:   options.MemberThreshold,
			})
			if err != nil {
				log.Error("failed to build payment requirements", map[string]any{"error": err.Error()})
				writeErrorResponse(w, http.StatusInternalServerError, err.Error())
				return
			}

			payment := r.Header.Get("X-PAYMENT")
			if payment == "" {
				if isWebBrowser(r) {
					html := options.CustomPaywallHTML
					if html == "" {
						html = paywallHTML
					}
					w.Header().Set("Content-Type", "text/html")
					w.WriteHeader(http.StatusPaymentRequired)
					w.Write([]byte(html))
					return
				}
				writePaymentRequiredResponse(w, "X-PAYMENT header is required", requirements)
				return
			}

			outcome := facilitator.Evaluate(r.Context(), payment, requirements)
			switch result := outcome.(type) {
			case svm.Rejected:
				log.Warn("payment rejected", map[string]any{
					"code":   result.Code,
					"reason": result.Reason,
					"path":   r.URL.Path,
				})
				writePaymentRequiredResponse(w, result.Reason, requirements)
				return

			case svm.MemberGranted:
				attachReceipt(w, result.Receipt(), log)

			case svm.Settled:
				attachReceipt(w, result.Receipt(), log)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isWebBrowser(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html") &&
		strings.Contains(r.Header.Get("User-Agent"), "Mozilla")
}

// writeErrorResponse writes an error response with the given status code and message.
func writeErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error":       errorMsg,
		"x402Version": x402.X402Version,
	})
}

// writePaymentRequiredResponse writes the 402 challenge with the given
// error message and the current payment requirements.
func writePaymentRequiredResponse(w http.ResponseWriter, errorMsg string, requirements *x402.PaymentRequirements) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	json.NewEncoder(w).Encode(requirements.WithError(errorMsg))
}

func attachReceipt(w http.ResponseWriter, receipt x402.PaymentReceipt, log logger.Logger) {
	encoded, err := receipt.EncodeToBase64String()
	if err != nil {
		log.Error("failed to encode payment receipt", map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("X-PAYMENT-RESPONSE", encoded)
}

// paywallHTML is the default paywall page served to browsers.
const paywallHTML = "<html><body>Payment Required</body></html>"
