package main

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/webhook"
)

func TestRun_GeneratesSecret(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, nil, &out))

	line := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(line, "WEBHOOK_SECRET=whsec_"))
	assert.Len(t, strings.TrimPrefix(line, "WEBHOOK_SECRET=whsec_"), 64)

	var again bytes.Buffer
	require.NoError(t, run(nil, nil, &again))
	assert.NotEqual(t, out.String(), again.String())
}

func TestRun_Sign(t *testing.T) {
	payload := `{"type":"stream.started"}`

	var out bytes.Buffer
	require.NoError(t, run([]string{"sign", "s3cret"}, strings.NewReader(payload), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	timestamp, err := strconv.ParseInt(strings.TrimPrefix(lines[0], webhook.TimestampHeader+": "), 10, 64)
	require.NoError(t, err)
	signature := strings.TrimPrefix(lines[1], webhook.SignatureHeader+": ")

	assert.True(t, webhook.Verify("s3cret", timestamp, []byte(payload), signature))
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"sign"}, nil, &out))
	assert.Error(t, run([]string{"verify", "x"}, nil, &out))
}
