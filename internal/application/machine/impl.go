package machine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/dispatcher"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/event"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// maxAutoDepth bounds the auto-transition cascade so a misconfigured rule can
// never recurse indefinitely.
const maxAutoDepth = 3

// machineImpl is the concrete implementation of Machine
type machineImpl struct {
	statusRepo   port.StatusRepository
	activityRepo port.ActivityRepository
	txManager    port.TransactionManager
	policy       DocumentPolicy
	dispatcher   dispatcher.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// Option configures the status machine
type Option func(*machineImpl)

// WithDispatcher sets the event dispatcher for emitting domain events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(m *machineImpl) {
		m.dispatcher = d
	}
}

// WithClock overrides the time source (used by tests)
func WithClock(now func() time.Time) Option {
	return func(m *machineImpl) {
		m.now = now
	}
}

// New creates a new status machine
func New(
	statusRepo port.StatusRepository,
	activityRepo port.ActivityRepository,
	txManager port.TransactionManager,
	policy DocumentPolicy,
	logger *zap.Logger,
	opts ...Option,
) Machine {
	m := &machineImpl{
		statusRepo:   statusRepo,
		activityRepo: activityRepo,
		txManager:    txManager,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// TransitionTo moves the application to the given step
func (m *machineImpl) TransitionTo(ctx context.Context, applicationID int64, step pipeline.Step, notes string) error {
	if !step.IsValid() {
		return fmt.Errorf("%w: %q", pipeline.ErrInvalidStep, step)
	}
	if len(notes) > pipeline.MaxNotesLength {
		return fmt.Errorf("%w: %d chars (max %d)", pipeline.ErrNotesTooLong, len(notes), pipeline.MaxNotesLength)
	}

	return m.transition(ctx, applicationID, step, notes, 0)
}

// transition commits one step change, then runs auto rules against the result.
// depth tracks the auto-transition cascade.
func (m *machineImpl) transition(ctx context.Context, applicationID int64, step pipeline.Step, notes string, depth int) error {
	res, err := m.commit(ctx, applicationID, step, notes)
	if errors.Is(err, pipeline.ErrConcurrentModification) {
		// One retry with fresh state; repeated conflict surfaces as transient.
		m.logger.Warn("Version conflict during transition, retrying",
			zap.Int64("application_id", applicationID),
			zap.String("step", step.String()))
		res, err = m.commit(ctx, applicationID, step, notes)
	}
	if err != nil {
		return err
	}

	// Event emission happens after the transaction commits; a failure here
	// is logged but never rolls back the state change.
	m.emitStatusChanged(ctx, applicationID, res)

	m.runAutoRules(ctx, applicationID, step, depth)
	return nil
}

// committed captures the outcome of one successful transition.
type committed struct {
	from pipeline.Step
	to   pipeline.Step
}

// commit performs the transactional part of a transition: history append,
// step update with optimistic version check, timestamp-on-first-entry, and
// the audit row.
func (m *machineImpl) commit(ctx context.Context, applicationID int64, step pipeline.Step, notes string) (*committed, error) {
	status, err := m.statusRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}
	if status == nil {
		return nil, fmt.Errorf("application %d has no status record", applicationID)
	}

	if step.Before(status.CurrentStep) {
		return nil, fmt.Errorf("%w: %s -> %s", pipeline.ErrBackwardTransition, status.CurrentStep, step)
	}

	oldStep := status.CurrentStep
	now := m.now()

	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := m.statusRepo.AppendHistory(txCtx, &entity.StepHistoryEntry{
			ApplicationID: applicationID,
			FromStep:      oldStep,
			ToStep:        step,
			Notes:         notes,
			CreatedAt:     now,
		}); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		status.CurrentStep = step
		status.MarkStepEntered(step, now)

		if err := m.statusRepo.Update(txCtx, status); err != nil {
			return err
		}

		// The audit write rides in the same transaction, but a failure here
		// must not block the transition itself.
		if err := m.recordActivity(txCtx, applicationID, oldStep, step, notes); err != nil {
			m.logger.Error("Failed to record transition activity",
				zap.Int64("application_id", applicationID),
				zap.Error(err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Application transitioned",
		zap.Int64("application_id", applicationID),
		zap.String("from", oldStep.String()),
		zap.String("to", step.String()))

	return &committed{from: oldStep, to: step}, nil
}

func (m *machineImpl) recordActivity(ctx context.Context, applicationID int64, from, to pipeline.Step, notes string) error {
	meta, _ := json.Marshal(map[string]interface{}{
		"from":     from.String(),
		"to":       to.String(),
		"notes":    notes,
		"progress": pipeline.Progress(to),
	})

	return m.activityRepo.Record(ctx, &entity.ActivityEntry{
		ApplicationID: applicationID,
		Action:        entity.ActionStatusTransition,
		Description:   fmt.Sprintf("Status changed from %s to %s", from, to),
		Metadata:      string(meta),
	})
}

func (m *machineImpl) emitStatusChanged(ctx context.Context, applicationID int64, res *committed) {
	if m.dispatcher == nil {
		return
	}

	evt := event.NewEvent(event.TypeStatusChanged, applicationID, map[string]interface{}{
		"old_step":            res.from.String(),
		"new_step":            res.to.String(),
		"progress_percentage": pipeline.Progress(res.to),
	})
	m.dispatcher.DispatchAsync(ctx, evt)
}

// Progress returns the completion percentage for a step
func (m *machineImpl) Progress(step pipeline.Step) int {
	return pipeline.Progress(step)
}

// CurrentStatus returns the status row for an application
func (m *machineImpl) CurrentStatus(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error) {
	status, err := m.statusRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("application %d has no status record", applicationID)
	}
	return status, nil
}

// History returns the step history in commit order
func (m *machineImpl) History(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error) {
	return m.statusRepo.GetHistory(ctx, applicationID)
}

// HasAllRequiredDocuments delegates to the document requirement policy
func (m *machineImpl) HasAllRequiredDocuments(ctx context.Context, applicationID int64) (bool, error) {
	return m.policy.HasAllRequiredDocuments(ctx, applicationID)
}

// ConfirmFees records the merchant's fee confirmation timestamp once
func (m *machineImpl) ConfirmFees(ctx context.Context, applicationID int64) error {
	status, err := m.CurrentStatus(ctx, applicationID)
	if err != nil {
		return err
	}
	if status.FeesConfirmedAt != nil {
		return nil
	}

	now := m.now()
	status.FeesConfirmedAt = &now

	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := m.statusRepo.Update(txCtx, status); err != nil {
			return err
		}
		return m.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: applicationID,
			Action:        entity.ActionFeesConfirmed,
			Description:   "Merchant confirmed the fee schedule",
		})
	})
	if err != nil {
		return err
	}

	if m.dispatcher != nil {
		m.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeFeesConfirmed, applicationID, nil))
	}
	return nil
}

// SetAdditionalInfo toggles the requires-additional-info overlay
func (m *machineImpl) SetAdditionalInfo(ctx context.Context, applicationID int64, required bool, notes string) error {
	if len(notes) > pipeline.MaxNotesLength {
		return fmt.Errorf("%w: %d chars (max %d)", pipeline.ErrNotesTooLong, len(notes), pipeline.MaxNotesLength)
	}

	status, err := m.CurrentStatus(ctx, applicationID)
	if err != nil {
		return err
	}
	if status.CurrentStep.IsTerminal() {
		return fmt.Errorf("application %d is already live", applicationID)
	}

	status.RequiresAdditionalInfo = required
	status.AdditionalInfoNotes = notes

	action := entity.ActionAdditionalInfoSet
	description := "Flagged as requiring additional information"
	if !required {
		action = entity.ActionAdditionalInfoCleared
		description = "Additional information requirement cleared"
		status.AdditionalInfoNotes = ""
	}

	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := m.statusRepo.Update(txCtx, status); err != nil {
			return err
		}
		return m.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: applicationID,
			Action:        action,
			Description:   description,
			Metadata:      notes,
		})
	})
	if err != nil {
		return err
	}

	if m.dispatcher != nil {
		m.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeAdditionalInfo, applicationID, map[string]interface{}{
			"required": required,
			"notes":    notes,
		}))
	}
	return nil
}
