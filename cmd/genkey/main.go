// Command genkey generates a WEBHOOK_SECRET and signs payloads the same way
// the webhook worker does, for testing receivers.
//
//	genkey              print a fresh secret
//	genkey sign SECRET  sign stdin with the current time
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/webhook"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "WEBHOOK_SECRET=%s\n", secret)
		return err
	}

	if args[0] != "sign" || len(args) != 2 {
		return fmt.Errorf("usage: genkey [sign SECRET]")
	}

	payload, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	timestamp := time.Now().Unix()
	_, err = fmt.Fprintf(stdout, "%s: %d\n%s: %s\n",
		webhook.TimestampHeader, timestamp,
		webhook.SignatureHeader, webhook.Sign(args[1], timestamp, payload),
	)
	return err
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
