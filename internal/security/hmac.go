package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SignPayload computes an HMAC-SHA256 signature over the JSON serialization
// of payload. Serialization is deterministic for struct payloads (field
// order is fixed by the type), so signing the same value twice yields an
// identical signature.
func SignPayload(payload interface{}, secret string) (string, error) {
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(normalized)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature re-signs payload with secret and compares against the
// presented signature in constant time. A mismatch is not an error here;
// the caller decides whether it is fatal.
func VerifySignature(payload interface{}, signature, secret string) bool {
	computed, err := SignPayload(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(computed), []byte(signature))
}
