// Package crypto verifies the HMAC signatures GitHub attaches to webhook deliveries.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignaturePrefix precedes the hex digest in the X-Hub-Signature-256 header.
const SignaturePrefix = "sha256="

var (
	// ErrMissingSignature is returned when the header is absent.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrMalformedSignature is returned when the header is not sha256=<64 hex chars>.
	ErrMalformedSignature = errors.New("malformed webhook signature")
	// ErrSignatureMismatch is returned when the digest does not match the body.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC-SHA256 of body.
// The comparison runs in constant time.
func VerifySignature(secret, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, SignaturePrefix) {
		return ErrMalformedSignature
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, SignaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return ErrMalformedSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}
