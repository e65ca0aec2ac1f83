package pusher

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign returns the lower-case hex HMAC-SHA256 of message keyed by secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the signature of message under secret.
// A mismatch is a normal false result, never an error.
func Verify(secret, message, signature string) bool {
	return secureCompare(Sign(secret, message), signature)
}

// secureCompare compares a and b in time that depends only on the length of
// the longer input. Differing lengths are folded into the result after the
// full walk rather than returned early.
func secureCompare(a, b string) bool {
	n := max(len(a), len(b))

	var diff byte
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		diff |= x ^ y
	}

	sameLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	return subtle.ConstantTimeByteEq(diff, 0)&sameLen == 1
}
