package esign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
)

// Config holds e-signature provider configuration
type Config struct {
	BaseURL   string
	APIKey    string
	AccountID string
	Timeout   time.Duration
}

// Client implements port.SignatureClient against the provider's REST API
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new e-signature client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type createEnvelopeRequest struct {
	AccountID    string `json:"account_id"`
	Reference    string `json:"reference"`
	DocumentName string `json:"document_name"`
	DocumentB64  string `json:"document_base64"`
	SignerEmail  string `json:"signer_email"`
	SignerName   string `json:"signer_name"`
}

type envelopeResponse struct {
	EnvelopeID string `json:"envelope_id"`
	SigningURL string `json:"signing_url"`
	Status     string `json:"status"`
}

// SendForSignature creates an envelope for the contract and returns its
// provider-side identifiers
func (c *Client) SendForSignature(ctx context.Context, req *port.SignatureRequest) (*port.SignatureEnvelope, error) {
	payload := createEnvelopeRequest{
		AccountID:    c.cfg.AccountID,
		Reference:    fmt.Sprintf("application-%d", req.ApplicationID),
		DocumentName: req.DocumentName,
		DocumentB64:  base64.StdEncoding.EncodeToString(req.DocumentPDF),
		SignerEmail:  req.SignerEmail,
		SignerName:   req.SignerName,
	}

	var resp envelopeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/envelopes", payload, &resp); err != nil {
		c.logger.Error("Failed to create signature envelope",
			zap.Int64("application_id", req.ApplicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create envelope: %w", err)
	}

	c.logger.Info("Signature envelope created",
		zap.Int64("application_id", req.ApplicationID),
		zap.String("envelope_id", resp.EnvelopeID))

	return &port.SignatureEnvelope{
		EnvelopeID: resp.EnvelopeID,
		SigningURL: resp.SigningURL,
		Status:     resp.Status,
	}, nil
}

// GetEnvelopeStatus fetches the provider-side status of an envelope
func (c *Client) GetEnvelopeStatus(ctx context.Context, envelopeID string) (string, error) {
	var resp envelopeResponse
	path := fmt.Sprintf("/v2/envelopes/%s", envelopeID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get envelope status: %w", err)
	}
	return resp.Status, nil
}

// doJSON performs a JSON request against the provider API
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Verify interface compliance
var _ port.SignatureClient = (*Client)(nil)
