// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/constants"
)

// # OAuth State Parameter

// StateClaims is the payload of the signed OAuth state parameter.
//
// The state is self-validating: signature proves it was minted by this server,
// expiry bounds the login window, and the nonce must match the one stored in
// the browser session — so a callback can be rejected without any server-side
// state table.
type StateClaims struct {
	jwt.RegisteredClaims

	// Nonce ties the state to the session that initiated the login.
	Nonce string `json:"n"`

	// Provider prevents a state minted for one provider being replayed
	// against another's callback endpoint.
	Provider identity.Provider `json:"p"`
}

// StateSigner mints and verifies OAuth state parameters using HS256.
type StateSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration

	// now is swapped in tests to exercise expiry.
	now func() time.Time
}

// NewStateSigner keys the signer with the shared session secret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{
		secret: []byte(secret),
		issuer: constants.StateIssuer,
		ttl:    constants.StateTTL,
		now:    time.Now,
	}
}

// Issue mints a signed state parameter for one login attempt.
func (signer *StateSigner) Issue(provider identity.Provider, nonce string) (string, error) {
	currentTime := signer.now()
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(signer.ttl)),
		},
		Nonce:    nonce,
		Provider: provider,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a state parameter.
func (signer *StateSigner) Verify(state string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return signer.now() }))

	if err != nil {
		return nil, fmt.Errorf("auth: invalid state: %w", err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid state claims")
	}

	return claims, nil
}
