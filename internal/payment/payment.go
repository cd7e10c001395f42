// Package payment gates run submission behind an HTTP payment facilitator.
// The service never touches settlement details itself; it forwards the
// caller's payment header to the facilitator and acts on the pass/fail
// answer.
package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// protocolVersion is the payment protocol version spoken on the wire.
const protocolVersion = 1

// Requirements describes what a caller must pay to start a run. It is
// returned verbatim in the 402 body so clients can construct a payment.
type Requirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	Resource          string `json:"resource"`
	Description       string `json:"description"`
	MimeType          string `json:"mimeType"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
	Asset             string `json:"asset,omitempty"`
}

// NewRequirements builds the requirements for one run submission.
func NewRequirements(amount, network, payTo, resource string) Requirements {
	return Requirements{
		Scheme:            "exact",
		Network:           network,
		MaxAmountRequired: amount,
		Resource:          resource,
		Description:       "Generate one AI landing page",
		MimeType:          "application/json",
		PayTo:             payTo,
		MaxTimeoutSeconds: 120,
	}
}

// Verification is the outcome of a payment check.
type Verification struct {
	Valid bool
	Payer string
	// Reason explains a rejection; empty when Valid.
	Reason string
}

// Verifier decides whether a submission's payment header authorizes a run.
type Verifier interface {
	Verify(ctx context.Context, paymentHeader string, reqs Requirements) (*Verification, error)
	// Enabled reports whether the gate is active. A disabled gate lets
	// every submission through.
	Enabled() bool
}

// RequiredError is the machine-readable 402 body.
type RequiredError struct {
	Version int            `json:"x402Version"`
	Error   string         `json:"error"`
	Accepts []Requirements `json:"accepts"`
	Payer   string         `json:"payer,omitempty"`
}

// NewRequiredError builds the 402 body for a missing or rejected payment.
func NewRequiredError(reason string, reqs Requirements) *RequiredError {
	if reason == "" {
		reason = "Payment required"
	}
	return &RequiredError{
		Version: protocolVersion,
		Error:   reason,
		Accepts: []Requirements{reqs},
	}
}

// decodeHeader unpacks the base64-encoded JSON payment payload from the
// request header. The payload is opaque to this service; decoding only
// checks well-formedness before forwarding.
func decodeHeader(header string) (json.RawMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("payment header is not valid base64: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payment header does not contain valid JSON")
	}
	return json.RawMessage(raw), nil
}
