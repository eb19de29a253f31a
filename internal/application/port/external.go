package port

import "context"

// SignatureRequest is the payload sent to the e-signature provider.
type SignatureRequest struct {
	ApplicationID int64
	MerchantName  string
	SignerEmail   string
	SignerName    string
	DocumentName  string
	DocumentPDF   []byte
}

// SignatureEnvelope is the provider's unit of work for one contract send.
type SignatureEnvelope struct {
	EnvelopeID string
	SigningURL string
	Status     string
}

// SignatureClient wraps the external e-signature provider. The core never
// reads document bytes back from the provider; it only correlates envelopes.
type SignatureClient interface {
	SendForSignature(ctx context.Context, req *SignatureRequest) (*SignatureEnvelope, error)
	GetEnvelopeStatus(ctx context.Context, envelopeID string) (string, error)
}

// EmailMessage is a rendered outbound email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailSender delivers outbound email. Delivery is fire-and-forget from the
// core's point of view; failures are reported back for the queue to record.
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}
