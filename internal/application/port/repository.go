package port

import (
	"context"
	"time"

	"github.com/merchantflow/onboarding/internal/domain/entity"
)

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	GetByID(ctx context.Context, id int64) (*entity.Application, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Application, error)
	Update(ctx context.Context, app *entity.Application) error

	// SoftDelete marks the application deleted. Applications are never hard
	// deleted while status history exists.
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// StatusRepository defines persistence operations for ApplicationStatus and
// its append-only step history. Only the status machine calls the mutating
// methods that touch CurrentStep, timestamps, or history.
type StatusRepository interface {
	Create(ctx context.Context, status *entity.ApplicationStatus) error
	GetByApplicationID(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error)
	GetByEnvelopeID(ctx context.Context, envelopeID string) (*entity.ApplicationStatus, error)

	// Update persists the full status row guarded by the optimistic version
	// check. On success the in-memory Version is advanced; on a stale version
	// it returns pipeline.ErrConcurrentModification and writes nothing.
	Update(ctx context.Context, status *entity.ApplicationStatus) error

	// SetEnvelope records the e-signature correlation key. Overwritten when a
	// new contract is sent.
	SetEnvelope(ctx context.Context, applicationID int64, envelopeID, envelopeStatus string) error

	// UpdateEnvelopeStatus updates only the provider-reported envelope status.
	UpdateEnvelopeStatus(ctx context.Context, applicationID int64, envelopeStatus string) error

	// ListByEnvelopeStatus returns statuses whose envelope is in the given
	// provider state, for webhook-fallback polling.
	ListByEnvelopeStatus(ctx context.Context, envelopeStatus string, limit int) ([]*entity.ApplicationStatus, error)

	AppendHistory(ctx context.Context, entry *entity.StepHistoryEntry) error
	GetHistory(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error)
}

// ActivityRepository is the append-only audit trail. Records are never
// updated or deleted.
type ActivityRepository interface {
	Record(ctx context.Context, entry *entity.ActivityEntry) error
	ListByApplication(ctx context.Context, applicationID int64, limit, offset int) ([]*entity.ActivityEntry, error)
}

// DocumentRepository defines persistence operations for ApplicationDocument
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.ApplicationDocument) error
	GetByID(ctx context.Context, id int64) (*entity.ApplicationDocument, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationDocument, error)
	ExistsForCategory(ctx context.Context, applicationID int64, category string) (bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCategory(ctx context.Context, applicationID int64, category string) error
}

// AdditionalDocumentRepository defines persistence operations for
// ApplicationAdditionalDocument
type AdditionalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.ApplicationAdditionalDocument) error
	GetByID(ctx context.Context, id int64) (*entity.ApplicationAdditionalDocument, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error)
	MarkUploaded(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// NotificationRepository defines persistence operations for queued notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
