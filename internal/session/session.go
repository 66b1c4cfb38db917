// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

/*
Package session implements the client-held session store.

The whole session lives in a single sealed cookie on the browser: there is no
server-side session table, so the blob must survive the cross-origin redirect
dance of a provider login and come back intact. Sealing uses AES-256-GCM keyed
from the server session secret, which gives confidentiality and integrity in
one primitive — a tampered or foreign cookie simply fails to open and the
request proceeds as anonymous.

# Lifecycle

Created empty on first request, populated at a successful provider callback,
mutated by KYC initiation and verified webhook callbacks, destroyed atomically
on logout.
*/
package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/constants"
	"github.com/visionverse/identity-api/internal/platform/ctxkey"
)

// # Session State

// Session is the complete per-browser state carried in the sealed cookie.
type Session struct {
	// User is the authenticated identity, nil while anonymous.
	User *identity.UserIdentity `json:"user,omitempty"`

	// ReturnTo is the pending post-login redirect path. It is consumed
	// exactly once by [Session.ConsumeReturnTo].
	ReturnTo string `json:"return_to,omitempty"`

	// AuthNonce ties an in-flight provider login to this browser. A callback
	// whose state nonce has no matching session nonce is unauthorized.
	AuthNonce string `json:"auth_nonce,omitempty"`

	// KYCSessionID links the session to an external verification session.
	KYCSessionID string `json:"kyc_session_id,omitempty"`

	// KYCRedirectURL is where the verification flow sends the browser back to.
	KYCRedirectURL string `json:"kyc_redirect_url,omitempty"`

	// IssuedAt bounds the session lifetime independently of cookie expiry,
	// which the browser controls and the server can not trust.
	IssuedAt time.Time `json:"issued_at"`
}

// Authenticated reports whether a user identity is present. Pure read.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// ConsumeReturnTo returns the pending return path and clears it.
//
// Consumption is exactly-once: a replayed callback finds the field empty and
// falls back to the default landing path.
func (s *Session) ConsumeReturnTo() string {
	returnTo := s.ReturnTo
	s.ReturnTo = ""
	return returnTo
}

// # Codec

var errSealedBlob = errors.New("session: sealed blob invalid")

// codec seals and opens session blobs with AES-256-GCM.
type codec struct {
	aead cipher.AEAD
}

func newCodec(secret string) (*codec, error) {
	if secret == "" {
		return nil, errors.New("session: empty secret")
	}

	// Derive a fixed-length key from the configured secret.
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("session: cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("session: gcm init: %w", err)
	}

	return &codec{aead: aead}, nil
}

// seal serializes and encrypts the session into a cookie-safe string.
func (c *codec) seal(sess *Session) (string, error) {
	plaintext, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("session: marshal: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// open decrypts and deserializes a cookie value.
func (c *codec) open(value string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return nil, errSealedBlob
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errSealedBlob
	}

	sess := &Session{}
	if err := json.Unmarshal(plaintext, sess); err != nil {
		return nil, errSealedBlob
	}
	return sess, nil
}

// # Manager

// Manager loads, saves and clears the sealed session cookie.
type Manager struct {
	codec      *codec
	cookieName string
	maxAge     time.Duration
	secure     bool

	// now is swapped in tests to exercise expiry.
	now func() time.Time
}

// NewManager builds a Manager keyed by the session secret.
//
// In production the cookie is Secure and SameSite=None so it survives the
// cross-origin provider redirects; development keeps Lax so plain-HTTP
// localhost setups work.
func NewManager(secret string, production bool) (*Manager, error) {
	codec, err := newCodec(secret)
	if err != nil {
		return nil, err
	}
	return &Manager{
		codec:      codec,
		cookieName: constants.SessionCookieName,
		maxAge:     constants.SessionMaxAge,
		secure:     production,
		now:        time.Now,
	}, nil
}

// Load returns the session carried by the request, or a fresh empty session
// when the cookie is absent, expired, or fails to open.
//
// A broken cookie is indistinguishable from a malicious one, so both
// degrade to anonymous rather than erroring.
func (m *Manager) Load(request *http.Request) *Session {
	cookie, err := request.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return m.fresh()
	}

	sess, err := m.codec.open(cookie.Value)
	if err != nil {
		return m.fresh()
	}

	if sess.IssuedAt.IsZero() || m.now().After(sess.IssuedAt.Add(m.maxAge)) {
		return m.fresh()
	}

	return sess
}

// Save seals the session and writes the cookie.
//
// Callers must check the error before reporting success: a response that
// depends on session content is a lie if the session did not persist.
func (m *Manager) Save(writer http.ResponseWriter, sess *Session) error {
	value, err := m.codec.seal(sess)
	if err != nil {
		return err
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite(),
	})
	return nil
}

// Clear destroys the entire session in one step: user, return path, and KYC
// linkage all go together. Partial clears would let a new login inherit a
// prior user's verification session.
//
// Clearing an absent session is a no-op, so logout is idempotent.
func (m *Manager) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite(),
	})
}

func (m *Manager) fresh() *Session {
	return &Session{IssuedAt: m.now()}
}

func (m *Manager) sameSite() http.SameSite {
	if m.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// # Request Plumbing

// Middleware decodes the session once per request and injects it into the
// context for every downstream handler.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			sess := m.Load(request)
			ctx := context.WithValue(request.Context(), ctxkey.KeySession, sess)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// FromContext retrieves the request session injected by [Manager.Middleware].
// Returns an empty session if the middleware did not run.
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(ctxkey.KeySession).(*Session); ok && sess != nil {
		return sess
	}
	return &Session{IssuedAt: time.Now()}
}
