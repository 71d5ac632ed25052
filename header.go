package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// paymentHeaderSchemaJSON is the envelope contract for the X-PAYMENT header.
// Only the payload fields are required here: a missing or wrong
// version/scheme/network is a protocol mismatch judged against the published
// requirement, not a malformed header.
const paymentHeaderSchemaJSON = `{
	"type": "object",
	"required": ["payload"],
	"properties": {
		"x402Version": {"type": "integer"},
		"scheme": {"type": "string"},
		"network": {"type": "string"},
		"payload": {
			"type": "object",
			"required": ["txBase64", "reference"],
			"properties": {
				"txBase64": {"type": "string", "minLength": 1},
				"reference": {"type": "string", "minLength": 1}
			}
		}
	}
}`

var paymentHeaderSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(paymentHeaderSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("x402: invalid payment header schema: %v", err))
	}
	paymentHeaderSchema = schema
}

// EncodePaymentHeader encodes a payment payload into an X-PAYMENT header value
func EncodePaymentHeader(payload *PaymentHeaderPayload) (string, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payment header: %w", err)
	}

	return base64.StdEncoding.EncodeToString(jsonBytes), nil
}

// DecodePaymentHeader decodes an X-PAYMENT header value into a
// PaymentHeaderPayload. Bad base64, bad JSON, and a payload missing
// txBase64 or reference all return a *PaymentError with code
// malformed_header. This runs before any network interaction so garbage
// input is rejected without spending an RPC call.
func DecodePaymentHeader(headerValue string) (*PaymentHeaderPayload, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(headerValue)
	if err != nil {
		return nil, NewPaymentError(ErrCodeMalformedHeader,
			fmt.Sprintf("failed to decode base64 header: %v", err), nil)
	}

	result, err := paymentHeaderSchema.Validate(gojsonschema.NewBytesLoader(decodedBytes))
	if err != nil {
		return nil, NewPaymentError(ErrCodeMalformedHeader,
			fmt.Sprintf("failed to parse payment header: %v", err), nil)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
		}
		return nil, NewPaymentError(ErrCodeMalformedHeader, strings.Join(reasons, "; "), nil)
	}

	var payload PaymentHeaderPayload
	if err := json.Unmarshal(decodedBytes, &payload); err != nil {
		return nil, NewPaymentError(ErrCodeMalformedHeader,
			fmt.Sprintf("failed to unmarshal payment header: %v", err), nil)
	}

	return &payload, nil
}

// EncodeToBase64String renders the receipt for the X-PAYMENT-RESPONSE header
func (r *PaymentReceipt) EncodeToBase64String() (string, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode the payment receipt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(jsonBytes), nil
}

// DecodePaymentReceiptFromBase64 decodes an X-PAYMENT-RESPONSE header value
func DecodePaymentReceiptFromBase64(encoded string) (*PaymentReceipt, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 string: %w", err)
	}

	var receipt PaymentReceipt
	if err := json.Unmarshal(decodedBytes, &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment receipt: %w", err)
	}

	return &receipt, nil
}
