// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/visionverse/identity-api/internal/kyc"
)

// sign computes the hex HMAC-SHA256 the verification service would attach.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

/*
TestTrustGate_Verify covers the webhook signature gate: only a correct HMAC
over the exact received bytes passes.
*/
func TestTrustGate_Verify(t *testing.T) {
	const secret = "webhook-secret"
	body := []byte(`{"session_id":"kyc-1","status":"Approved"}`)

	gate := kyc.NewTrustGate(secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		valid     bool
	}{
		{"valid", body, sign(secret, body), true},
		{"valid_uppercase_hex", body, strings.ToUpper(sign(secret, body)), true},
		{"valid_padded", body, "  " + sign(secret, body) + "\n", true},
		{"wrong_secret", body, sign("other-secret", body), false},
		{"body_mutated", []byte(`{"session_id":"kyc-2"}`), sign(secret, body), false},
		{"not_hex", body, "zz" + sign(secret, body)[2:], false},
		{"truncated", body, sign(secret, body)[:32], false},
		{"empty_signature", body, "", false},
		{"whitespace_signature", body, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, gate.Verify(tt.body, tt.signature))
		})
	}
}
