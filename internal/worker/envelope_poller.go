package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/application/service"
)

// EnvelopePollerConfig holds configuration for the envelope poller
type EnvelopePollerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultEnvelopePollerConfig returns default configuration
func DefaultEnvelopePollerConfig() EnvelopePollerConfig {
	return EnvelopePollerConfig{
		PollInterval: 5 * time.Minute,
		BatchSize:    20,
	}
}

// EnvelopePoller is the webhook fallback: it periodically asks the provider
// for the state of outstanding envelopes so a lost webhook cannot strand an
// application in contract_sent.
type EnvelopePoller struct {
	config EnvelopePollerConfig

	statusRepo port.StatusRepository
	esign      port.SignatureClient
	contracts  *service.ContractService
	logger     *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
}

// NewEnvelopePoller creates a new envelope poller
func NewEnvelopePoller(
	config EnvelopePollerConfig,
	statusRepo port.StatusRepository,
	esign port.SignatureClient,
	contracts *service.ContractService,
	logger *zap.Logger,
) *EnvelopePoller {
	return &EnvelopePoller{
		config:     config,
		statusRepo: statusRepo,
		esign:      esign,
		contracts:  contracts,
		logger:     logger,
	}
}

// Start begins the polling loop
func (w *EnvelopePoller) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("envelope poller already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("EnvelopePoller started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()
	return nil
}

// Stop gracefully terminates the poller
func (w *EnvelopePoller) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("EnvelopePoller stopped")
	return nil
}

// Name returns the worker name
func (w *EnvelopePoller) Name() string {
	return "EnvelopePoller"
}

func (w *EnvelopePoller) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.checkOutstandingEnvelopes(); err != nil {
				w.logger.Error("Envelope poll failed", zap.Error(err))
			}
		}
	}
}

// checkOutstandingEnvelopes reconciles every envelope still marked sent
func (w *EnvelopePoller) checkOutstandingEnvelopes() error {
	ctx := w.ctx

	statuses, err := w.statusRepo.ListByEnvelopeStatus(ctx, service.EnvelopeSent, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list outstanding envelopes: %w", err)
	}

	for _, status := range statuses {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		providerStatus, err := w.esign.GetEnvelopeStatus(ctx, status.DocusignEnvelopeID)
		if err != nil {
			w.logger.Warn("Failed to fetch envelope status",
				zap.Int64("application_id", status.ApplicationID),
				zap.String("envelope_id", status.DocusignEnvelopeID),
				zap.Error(err))
			continue
		}

		switch providerStatus {
		case service.EnvelopeCompleted:
			w.logger.Info("Poller found completed envelope",
				zap.Int64("application_id", status.ApplicationID),
				zap.String("envelope_id", status.DocusignEnvelopeID))
			if err := w.contracts.HandleSigningComplete(ctx, status.DocusignEnvelopeID); err != nil {
				w.logger.Error("Failed to process completed envelope",
					zap.String("envelope_id", status.DocusignEnvelopeID),
					zap.Error(err))
			}

		case "declined", "voided":
			if err := w.contracts.HandleEnvelopeTerminated(ctx, status.DocusignEnvelopeID, "envelope."+providerStatus); err != nil {
				w.logger.Error("Failed to process terminated envelope",
					zap.String("envelope_id", status.DocusignEnvelopeID),
					zap.Error(err))
			}
		}
	}

	return nil
}

// Verify interface compliance
var _ Worker = (*EnvelopePoller)(nil)
