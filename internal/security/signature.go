package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const signaturePrefix = "sha256="

// ValidSignature checks a Meta webhook signature header ("sha256=<hex>")
// against the HMAC-SHA256 of the raw body keyed by the app secret. The
// comparison is constant-time regardless of where the signatures diverge.
func ValidSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature header value for a body. Used by tests and by
// inter-service calls that need to sign their own payloads.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
