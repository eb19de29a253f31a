package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

// Verifier validates incoming e-signature webhook requests
type Verifier struct {
	secret string
	logger *zap.Logger
}

// NewVerifier creates a new webhook verifier
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret: secret,
		logger: logger,
	}
}

// VerifySignature checks the HMAC-SHA256 signature of a webhook payload.
// The provider signs timestamp + "." + body with the shared secret.
func (v *Verifier) VerifySignature(timestamp, signature string, body []byte) bool {
	if v.secret == "" {
		// Signature verification disabled when no secret configured
		return true
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// ValidateEventType checks if the event type is one we process
func (v *Verifier) ValidateEventType(eventType string) bool {
	validTypes := []string{
		"envelope.completed",
		"envelope.sent",
		"envelope.declined",
		"envelope.voided",
	}

	for _, valid := range validTypes {
		if eventType == valid {
			return true
		}
	}

	return false
}
