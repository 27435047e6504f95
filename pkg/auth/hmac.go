package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureHeader is the lower-cased header carrying the payload signature
const SignatureHeader = "x-hub-signature"

// VerifySignature reports whether header carries the HMAC-SHA256 digest of
// body keyed by secret. A malformed header never verifies.
func VerifySignature(secret, header string, body []byte) bool {
	return VerifyHMAC(secret, header, body) == nil
}

// VerifyHMAC checks a "<algorithm>=<hex>" signature header against body and
// returns an error describing the mismatch
func VerifyHMAC(secret, header string, body []byte) error {
	if header == "" {
		return fmt.Errorf("missing HMAC signature header")
	}

	// Parse signature (format: "sha256=<hex>")
	parts := strings.SplitN(header, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid signature format")
	}

	providedSignature := parts[1]
	expectedSignature := computeDigest(secret, body)

	if !hmac.Equal([]byte(expectedSignature), []byte(providedSignature)) {
		return fmt.Errorf("HMAC signature mismatch")
	}

	return nil
}

// Sign returns the "sha256=<hex>" header value for body
func Sign(secret string, body []byte) string {
	return "sha256=" + computeDigest(secret, body)
}

func computeDigest(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
