package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/service"
)

// Handler handles e-signature provider webhook requests
type Handler struct {
	verifier  *Verifier
	contracts *service.ContractService
	logger    *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(verifier *Verifier, contracts *service.ContractService, logger *zap.Logger) *Handler {
	return &Handler{
		verifier:  verifier,
		contracts: contracts,
		logger:    logger,
	}
}

// EnvelopeEvent is the provider's webhook payload
type EnvelopeEvent struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	EnvelopeID string `json:"envelope_id"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}

// Handle processes incoming webhook requests
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	timestamp := c.GetHeader("X-Esign-Timestamp")
	signature := c.GetHeader("X-Esign-Signature")

	if !h.verifier.VerifySignature(timestamp, signature, body) {
		h.logger.Warn("Invalid webhook signature",
			zap.String("timestamp", timestamp))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event EnvelopeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("Failed to parse event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	if !h.verifier.ValidateEventType(event.EventType) {
		h.logger.Warn("Unsupported event type", zap.String("event_type", event.EventType))
		c.JSON(http.StatusOK, gin.H{"message": "Event type not supported"})
		return
	}

	h.logger.Info("Received envelope event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("envelope_id", event.EnvelopeID))

	// Process asynchronously to respond quickly to the provider; it retries
	// on anything but a 2xx.
	go h.processEvent(&event)

	c.JSON(http.StatusOK, gin.H{"message": "Event received"})
}

// processEvent processes the envelope event
func (h *Handler) processEvent(event *EnvelopeEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in event processing", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch event.EventType {
	case "envelope.completed":
		if err := h.contracts.HandleSigningComplete(ctx, event.EnvelopeID); err != nil {
			h.logger.Error("Failed to handle envelope completion",
				zap.String("envelope_id", event.EnvelopeID),
				zap.Error(err))
		}

	case "envelope.declined", "envelope.voided":
		if err := h.contracts.HandleEnvelopeTerminated(ctx, event.EnvelopeID, event.EventType); err != nil {
			h.logger.Error("Failed to handle envelope termination",
				zap.String("envelope_id", event.EnvelopeID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}

	default:
		// envelope.sent and other informational events need no action
		h.logger.Debug("Ignoring informational event",
			zap.String("event_type", event.EventType))
	}
}
