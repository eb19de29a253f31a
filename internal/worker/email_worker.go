package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// EmailWorkerConfig holds configuration for the email worker
type EmailWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	SendTimeout  time.Duration
}

// DefaultEmailWorkerConfig returns default configuration
func DefaultEmailWorkerConfig() EmailWorkerConfig {
	return EmailWorkerConfig{
		PollInterval: 15 * time.Second,
		BatchSize:    10,
		SendTimeout:  30 * time.Second,
	}
}

// EmailWorker drains the notification queue. Sending the approval email is
// what moves an application from application_approved to approval_email_sent,
// so the pipeline never claims an email that was not delivered.
type EmailWorker struct {
	config EmailWorkerConfig

	notificationRepo port.NotificationRepository
	sender           port.EmailSender
	machine          machine.Machine
	logger           *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	sentCount int
	failCount int
}

// NewEmailWorker creates a new email worker
func NewEmailWorker(
	config EmailWorkerConfig,
	notificationRepo port.NotificationRepository,
	sender port.EmailSender,
	m machine.Machine,
	logger *zap.Logger,
) *EmailWorker {
	return &EmailWorker{
		config:           config,
		notificationRepo: notificationRepo,
		sender:           sender,
		machine:          m,
		logger:           logger,
	}
}

// Start begins the worker polling loop
func (w *EmailWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("email worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("EmailWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()
	return nil
}

// Stop gracefully terminates the worker
func (w *EmailWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	sent, failed := w.sentCount, w.failCount
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("EmailWorker stopped",
		zap.Int("sent_count", sent),
		zap.Int("fail_count", failed))
	return nil
}

// Name returns the worker name
func (w *EmailWorker) Name() string {
	return "EmailWorker"
}

func (w *EmailWorker) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.drainQueue(); err != nil {
				w.logger.Error("Failed to drain notification queue", zap.Error(err))
			}
		}
	}
}

// drainQueue sends one batch of pending notifications
func (w *EmailWorker) drainQueue() error {
	ctx := w.ctx

	pending, err := w.notificationRepo.GetPending(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending notifications: %w", err)
	}

	for _, n := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.deliver(ctx, n)
	}
	return nil
}

// deliver sends one notification and records the outcome
func (w *EmailWorker) deliver(ctx context.Context, n *entity.Notification) {
	sendCtx, cancel := context.WithTimeout(ctx, w.config.SendTimeout)
	defer cancel()

	err := w.sender.Send(sendCtx, &port.EmailMessage{
		To:      n.Recipient,
		Subject: n.Subject,
		Body:    n.Body,
	})
	if err != nil {
		w.logger.Error("Failed to deliver notification",
			zap.Int64("notification_id", n.ID),
			zap.Int64("application_id", n.ApplicationID),
			zap.Error(err))
		if markErr := w.notificationRepo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			w.logger.Error("Failed to mark notification failed",
				zap.Int64("notification_id", n.ID), zap.Error(markErr))
		}
		w.mu.Lock()
		w.failCount++
		w.mu.Unlock()
		return
	}

	if err := w.notificationRepo.MarkSent(ctx, n.ID, time.Now()); err != nil {
		w.logger.Error("Failed to mark notification sent",
			zap.Int64("notification_id", n.ID), zap.Error(err))
	}

	w.mu.Lock()
	w.sentCount++
	w.mu.Unlock()

	// Delivering the approval email is itself a pipeline step.
	if n.Kind == entity.NotificationApprovalEmail {
		notes := fmt.Sprintf("Approval email delivered to %s", n.Recipient)
		if err := w.machine.TransitionTo(ctx, n.ApplicationID, pipeline.StepApprovalEmailSent, notes); err != nil {
			w.logger.Error("Failed to advance pipeline after approval email",
				zap.Int64("application_id", n.ApplicationID),
				zap.Error(err))
		}
	}
}

// Verify interface compliance
var _ Worker = (*EmailWorker)(nil)
