package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// hmacEqual compares an HMAC-SHA256 hex digest of payload against the
// claimed signature in constant time.
func hmacEqual(payload, secret, claimed string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	claimedBytes, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, claimedBytes)
}

// Sign produces the hex HMAC-SHA256 of payload with secret. Exported
// for tests.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
