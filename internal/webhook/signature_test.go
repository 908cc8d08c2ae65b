package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"type":"stream.started","data":{}}`)

	signature := Sign("my-secret-key", 1700000000, payload)
	assert.Contains(t, signature, "sha256=")
	assert.Len(t, signature, len("sha256=")+64)

	assert.Equal(t, signature, Sign("my-secret-key", 1700000000, payload), "signature must be deterministic")
	assert.NotEqual(t, signature, Sign("my-secret-key", 1700000001, payload), "timestamp must be signed")
}

func TestVerify(t *testing.T) {
	secret := "test-secret"
	var timestamp int64 = 1700000000
	payload := []byte(`{"test":"data"}`)
	validSignature := Sign(secret, timestamp, payload)

	tests := []struct {
		name      string
		secret    string
		timestamp int64
		payload   []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			timestamp: timestamp,
			payload:   payload,
			signature: validSignature,
			expected:  true,
		},
		{
			name:      "invalid signature",
			secret:    secret,
			timestamp: timestamp,
			payload:   payload,
			signature: "sha256=invalid",
			expected:  false,
		},
		{
			name:      "wrong secret",
			secret:    "wrong-secret",
			timestamp: timestamp,
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "replayed with new timestamp",
			secret:    secret,
			timestamp: timestamp + 60,
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "modified payload",
			secret:    secret,
			timestamp: timestamp,
			payload:   []byte(`{"test":"modified"}`),
			signature: validSignature,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Verify(tt.secret, tt.timestamp, tt.payload, tt.signature)
			assert.Equal(t, tt.expected, result)
		})
	}
}
