package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/dispatcher"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/event"
)

// Notifier turns domain events into queued notifications. It never sends
// mail itself; the email worker drains the queue.
type Notifier struct {
	appRepo          port.ApplicationRepository
	notificationRepo port.NotificationRepository
	logger           *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(appRepo port.ApplicationRepository, notificationRepo port.NotificationRepository, logger *zap.Logger) *Notifier {
	return &Notifier{
		appRepo:          appRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// RegisterHandlers subscribes the notifier to the events it cares about
func (n *Notifier) RegisterHandlers(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeApproved, "notifier.approved", n.HandleApproved)
	d.SubscribeNamed(event.TypeAdditionalInfo, "notifier.additional_info", n.HandleAdditionalInfo)
	d.SubscribeNamed(event.TypeDocumentsComplete, "notifier.documents_complete", n.HandleDocumentsComplete)
}

// HandleApproved enqueues the approval email for an approved application
func (n *Notifier) HandleApproved(ctx context.Context, evt *event.Event) error {
	app, err := n.appRepo.GetByID(ctx, evt.ApplicationID)
	if err != nil {
		return err
	}
	if app == nil {
		return fmt.Errorf("application %d not found", evt.ApplicationID)
	}
	if app.ContactEmail == "" {
		n.logger.Warn("Application has no contact email, skipping approval email",
			zap.Int64("application_id", app.ID))
		return nil
	}

	notification := &entity.Notification{
		ApplicationID: app.ID,
		Kind:          entity.NotificationApprovalEmail,
		RecipientKind: entity.RecipientApplication,
		Recipient:     app.ContactEmail,
		Subject:       fmt.Sprintf("Your merchant application for %s has been approved", app.MerchantName),
		Body: fmt.Sprintf(
			"Hello,\n\nGood news: the merchant application for %s has been approved.\n\n"+
				"We will send the first invoice shortly. No action is needed from you right now.\n",
			app.MerchantName),
	}

	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to enqueue approval email: %w", err)
	}

	n.logger.Info("Approval email queued",
		zap.Int64("application_id", app.ID),
		zap.Int64("notification_id", notification.ID))
	return nil
}

// HandleAdditionalInfo enqueues an email when staff request more information
func (n *Notifier) HandleAdditionalInfo(ctx context.Context, evt *event.Event) error {
	if !evt.GetPayloadBool("required") {
		// Clearing the flag needs no outbound mail
		return nil
	}

	app, err := n.appRepo.GetByID(ctx, evt.ApplicationID)
	if err != nil {
		return err
	}
	if app == nil || app.ContactEmail == "" {
		return nil
	}

	notes := evt.GetPayloadString("notes")
	body := fmt.Sprintf("Hello,\n\nWe need some additional information to progress the application for %s.\n", app.MerchantName)
	if notes != "" {
		body += fmt.Sprintf("\nDetails: %s\n", notes)
	}

	notification := &entity.Notification{
		ApplicationID: app.ID,
		Kind:          entity.NotificationAdditionalInfo,
		RecipientKind: entity.RecipientApplication,
		Recipient:     app.ContactEmail,
		Subject:       fmt.Sprintf("Additional information needed for %s", app.MerchantName),
		Body:          body,
	}

	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to enqueue additional-info email: %w", err)
	}
	return nil
}

// HandleDocumentsComplete enqueues an internal notice that the document set
// is complete
func (n *Notifier) HandleDocumentsComplete(ctx context.Context, evt *event.Event) error {
	app, err := n.appRepo.GetByID(ctx, evt.ApplicationID)
	if err != nil {
		return err
	}
	if app == nil || app.ContactEmail == "" {
		return nil
	}

	notification := &entity.Notification{
		ApplicationID: app.ID,
		Kind:          entity.NotificationDocumentsComplete,
		RecipientKind: entity.RecipientApplication,
		Recipient:     app.ContactEmail,
		Subject:       fmt.Sprintf("All required documents received for %s", app.MerchantName),
		Body: fmt.Sprintf(
			"Hello,\n\nWe have received every required document for %s. "+
				"Our team will review them and be in touch.\n",
			app.MerchantName),
	}

	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to enqueue documents-complete email: %w", err)
	}
	return nil
}
