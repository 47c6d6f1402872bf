// Package auth implements the request signing protocol shared with the
// collector. Every authenticated call carries an HMAC-SHA256 signature over a
// canonical message derived from the request; the agent's credential doubles
// as the bearer token and the HMAC key.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// credentialBytes is the size of a generated credential: 256 bits.
const credentialBytes = 32

// GenerateCredential produces a new agent credential: 256 bits of
// cryptographically secure random data, base64-encoded.
func GenerateCredential() (string, error) {
	key := make([]byte, credentialBytes)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating credential: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Sign computes the request signature: HMAC-SHA256 over the canonical
// message, base64-encoded with the standard alphabet and padding.
//
// The canonical message is four fields joined by newlines, in this exact
// order: decimal Unix timestamp, upper-cased HTTP method, request path, and
// the raw request body text ("" when the request has no body). The collector
// rebuilds the same message from the received request, so any change to the
// format here is a protocol break.
func Sign(secret string, timestamp int64, method, path, body string) string {
	message := fmt.Sprintf("%d\n%s\n%s\n%s",
		timestamp, strings.ToUpper(method), path, body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
