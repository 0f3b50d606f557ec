package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the HMAC of the request body.
const SignatureHeader = "X-Vigil-Signature"

// Signer computes HMAC-SHA256 signatures so receivers can verify that a
// webhook came from this service.
type Signer struct {
	secretKey []byte
}

// NewSigner creates a signer for the shared secret.
func NewSigner(secretKey string) *Signer {
	return &Signer{secretKey: []byte(secretKey)}
}

// Sign returns the hex-encoded signature of data, prefixed with "sha256=".
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches data.
func (s *Signer) Verify(data []byte, signature string) bool {
	return hmac.Equal([]byte(s.Sign(data)), []byte(signature))
}
