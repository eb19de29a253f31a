package machine

import (
	"context"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/domain/event"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// followUp is one automatic transition issued in reaction to a committed step
// change.
type followUp struct {
	target pipeline.Step
	notes  string
}

// followUpsFor returns the auto-transitions triggered by entering a step.
// Each is guarded at execution time against the machine already sitting at
// the target, which keeps the cascade idempotent.
func followUpsFor(entered pipeline.Step) []followUp {
	switch entered {
	case pipeline.StepContractSigned:
		return []followUp{{
			target: pipeline.StepContractSubmitted,
			notes:  "Auto-submitted after signing",
		}}
	default:
		return nil
	}
}

// runAutoRules evaluates reactive rules after a transition has committed.
// Rule failures are logged and never propagated: the triggering transition
// already committed and must stand.
func (m *machineImpl) runAutoRules(ctx context.Context, applicationID int64, entered pipeline.Step, depth int) {
	if depth >= maxAutoDepth {
		m.logger.Error("Auto-transition depth limit reached, stopping cascade",
			zap.Int64("application_id", applicationID),
			zap.String("entered", entered.String()),
			zap.Int("depth", depth))
		return
	}

	for _, f := range followUpsFor(entered) {
		status, err := m.statusRepo.GetByApplicationID(ctx, applicationID)
		if err != nil {
			m.logger.Error("Auto-rule could not load status",
				zap.Int64("application_id", applicationID),
				zap.Error(err))
			continue
		}
		if status == nil || status.CurrentStep == f.target {
			continue
		}

		if err := m.transition(ctx, applicationID, f.target, f.notes, depth+1); err != nil {
			m.logger.Error("Auto-transition rule failed",
				zap.Int64("application_id", applicationID),
				zap.String("entered", entered.String()),
				zap.String("target", f.target.String()),
				zap.Error(err))
		}
	}

	// Entering application_approved dispatches the approval-email job; the
	// notification pipeline owns delivery and the follow-up step change.
	if entered == pipeline.StepApplicationApproved && m.dispatcher != nil {
		m.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeApproved, applicationID, nil))
	}
}

// HandleDocumentsComplete reacts to the required document set becoming
// complete. The first completion records the documents-uploaded timestamp and
// notifies; the step only advances while the application is still in the
// early stages.
func (m *machineImpl) HandleDocumentsComplete(ctx context.Context, applicationID int64) error {
	status, err := m.CurrentStatus(ctx, applicationID)
	if err != nil {
		return err
	}
	if status.DocumentsUploadedAt != nil {
		// Completeness was already recorded once; deletions and re-uploads
		// after that point do not re-notify.
		return nil
	}

	complete, err := m.policy.HasAllRequiredDocuments(ctx, applicationID)
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}

	if status.CurrentStep.IsEarlyStage() {
		// The transition itself records documents_uploaded_at.
		if err := m.transition(ctx, applicationID, pipeline.StepDocumentsUploaded, "All required documents uploaded", 0); err != nil {
			return err
		}
	} else {
		now := m.now()
		status.MarkStepEntered(pipeline.StepDocumentsUploaded, now)
		if err := m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return m.statusRepo.Update(txCtx, status)
		}); err != nil {
			return err
		}
		m.logger.Info("Documents complete after early stages, step unchanged",
			zap.Int64("application_id", applicationID),
			zap.String("current_step", status.CurrentStep.String()))
	}

	if m.dispatcher != nil {
		current := status.CurrentStep
		if fresh, err := m.statusRepo.GetByApplicationID(ctx, applicationID); err == nil && fresh != nil {
			current = fresh.CurrentStep
		}
		m.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeDocumentsComplete, applicationID, map[string]interface{}{
			"current_step": current.String(),
		}))
	}
	return nil
}
