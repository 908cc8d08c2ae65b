package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign computes the SignatureHeader value over "<timestamp>.<payload>".
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func Verify(secret string, timestamp int64, payload []byte, signature string) bool {
	expected := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}
