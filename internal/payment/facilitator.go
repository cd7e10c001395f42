package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// FacilitatorVerifier verifies payments against a remote facilitator's
// /verify endpoint.
type FacilitatorVerifier struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewFacilitatorVerifier creates a verifier against the given facilitator.
func NewFacilitatorVerifier(endpoint, apiKey string) *FacilitatorVerifier {
	return &FacilitatorVerifier{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (v *FacilitatorVerifier) Enabled() bool { return true }

type verifyRequest struct {
	Version             int             `json:"x402Version"`
	PaymentPayload      json.RawMessage `json:"paymentPayload"`
	PaymentRequirements Requirements    `json:"paymentRequirements"`
}

type verifyResponse struct {
	IsValid       bool   `json:"isValid"`
	Payer         string `json:"payer"`
	InvalidReason string `json:"invalidReason"`
}

// Verify forwards the payment header to the facilitator. A missing or
// malformed header is an ordinary rejection, not an error; errors mean the
// facilitator itself could not be consulted.
func (v *FacilitatorVerifier) Verify(ctx context.Context, paymentHeader string, reqs Requirements) (*Verification, error) {
	if paymentHeader == "" {
		return &Verification{Valid: false, Reason: "X-PAYMENT header is required"}, nil
	}

	payload, err := decodeHeader(paymentHeader)
	if err != nil {
		log.Printf("[payment] rejected malformed header: %v", err)
		return &Verification{Valid: false, Reason: "Invalid or malformed payment header"}, nil
	}

	body, err := json.Marshal(verifyRequest{
		Version:             protocolVersion,
		PaymentPayload:      payload,
		PaymentRequirements: reqs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.APIKey)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facilitator unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("facilitator returned %d - %s", resp.StatusCode, string(errBody))
	}

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode facilitator response: %w", err)
	}

	if !parsed.IsValid {
		reason := parsed.InvalidReason
		if reason == "" {
			reason = "Payment verification failed"
		}
		log.Printf("[payment] verification failed: %s", reason)
		return &Verification{Valid: false, Payer: parsed.Payer, Reason: reason}, nil
	}

	log.Printf("[payment] verified payer %s", parsed.Payer)
	return &Verification{Valid: true, Payer: parsed.Payer}, nil
}

// NoopVerifier passes every submission. Used when the payment gate is
// disabled by configuration.
type NoopVerifier struct{}

func (NoopVerifier) Enabled() bool { return false }

func (NoopVerifier) Verify(context.Context, string, Requirements) (*Verification, error) {
	return &Verification{Valid: true}, nil
}
