package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader carries the gateway's HMAC-SHA512 hex digest of the
// raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

// VerifySignature checks a webhook body against the header digest.
// It must run over the exact raw bytes as received: re-serializing
// parsed JSON changes whitespace and key order and breaks the hash.
// A missing secret or missing header always fails closed.
func VerifySignature(secret string, rawBody []byte, headerSignature string) bool {
	if secret == "" || headerSignature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time
	return hmac.Equal([]byte(expected), []byte(headerSignature))
}

// Sign computes the digest the gateway would send for the given body.
func Sign(secret string, rawBody []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
