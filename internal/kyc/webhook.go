// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// # Webhook Trust Gate

// TrustGate validates inbound webhook callbacks from the verification
// service before they may mutate any session state.
//
// This is the sole boundary preventing a third party from forging a KYC
// approval: there is no fallback to unsigned processing, and a rejected
// callback is a strict no-op.
type TrustGate struct {
	secret []byte
}

// NewTrustGate keys the gate with the shared webhook secret.
func NewTrustGate(secret string) *TrustGate {
	return &TrustGate{secret: []byte(secret)}
}

// Verify reports whether the signature matches the raw request body.
//
// The expected signature is HMAC-SHA256 over the exact bytes received,
// hex-encoded. Comparison is constant time so the check leaks no timing
// information about how close a forgery came.
func (gate *TrustGate) Verify(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, gate.secret)
	mac.Write(body)

	return hmac.Equal(provided, mac.Sum(nil))
}
