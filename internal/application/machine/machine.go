package machine

import (
	"context"

	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// Machine is the single authorized mutator of an application's pipeline
// position, step timestamps, and history.
type Machine interface {
	// TransitionTo moves the application to the given step. The history
	// append, step update, timestamp write, and audit record commit as one
	// transaction; the status-changed event is emitted after commit.
	// Backward moves are rejected with pipeline.ErrBackwardTransition.
	// Re-entering the current step appends history but leaves its timestamp
	// untouched.
	TransitionTo(ctx context.Context, applicationID int64, step pipeline.Step, notes string) error

	// Progress returns the completion percentage for a step
	Progress(step pipeline.Step) int

	// CurrentStatus returns the status row for an application
	CurrentStatus(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error)

	// History returns the step history in commit order
	History(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error)

	// HasAllRequiredDocuments reports whether every base required document
	// category has at least one stored document
	HasAllRequiredDocuments(ctx context.Context, applicationID int64) (bool, error)

	// HandleDocumentsComplete reacts to the document set becoming complete:
	// records the documents-uploaded timestamp once, notifies, and
	// auto-advances early-stage applications
	HandleDocumentsComplete(ctx context.Context, applicationID int64) error

	// ConfirmFees records the merchant's fee confirmation timestamp once
	ConfirmFees(ctx context.Context, applicationID int64) error

	// SetAdditionalInfo toggles the requires-additional-info overlay without
	// changing the current step
	SetAdditionalInfo(ctx context.Context, applicationID int64, required bool, notes string) error
}

// DocumentPolicy is the slice of the document requirement policy the machine
// depends on.
type DocumentPolicy interface {
	HasAllRequiredDocuments(ctx context.Context, applicationID int64) (bool, error)
}
