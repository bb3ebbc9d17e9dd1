package billing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// SignatureHeader carries the provider's body signature.
const SignatureHeader = "x-paystack-signature"

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with the expected one in constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	want := Sign(secret, body)
	got := strings.ToLower(strings.TrimSpace(signature))
	if !hmac.Equal([]byte(want), []byte(got)) {
		return apierr.SignatureInvalid("webhook signature mismatch")
	}
	return nil
}
