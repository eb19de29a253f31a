package entity

import (
	"time"

	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// ApplicationStatus is the status machine's state for one application.
// Only the status machine mutates CurrentStep, the step timestamps, and the
// history; every other code path treats this as read-only.
type ApplicationStatus struct {
	ID            int64         `json:"id"`
	ApplicationID int64         `json:"application_id"`
	CurrentStep   pipeline.Step `json:"current_step"`

	// Version is bumped on every committed step change and backs the
	// optimistic concurrency check in the repository.
	Version int64 `json:"version"`

	DocusignEnvelopeID string `json:"docusign_envelope_id,omitempty"`
	DocusignStatus     string `json:"docusign_status,omitempty"`

	RequiresAdditionalInfo bool   `json:"requires_additional_info"`
	AdditionalInfoNotes    string `json:"additional_info_notes,omitempty"`

	FeesConfirmedAt       *time.Time `json:"fees_confirmed_at,omitempty"`
	ContractSentAt        *time.Time `json:"contract_sent_at,omitempty"`
	DocumentsUploadedAt   *time.Time `json:"documents_uploaded_at,omitempty"`
	ContractSignedAt      *time.Time `json:"contract_signed_at,omitempty"`
	ContractSubmittedAt   *time.Time `json:"contract_submitted_at,omitempty"`
	ApplicationApprovedAt *time.Time `json:"application_approved_at,omitempty"`
	InvoiceSentAt         *time.Time `json:"invoice_sent_at,omitempty"`
	InvoicePaidAt         *time.Time `json:"invoice_paid_at,omitempty"`
	GatewayIntegratedAt   *time.Time `json:"gateway_integrated_at,omitempty"`
	AccountLiveAt         *time.Time `json:"account_live_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StepTimestamp returns a pointer to the timestamp slot for the given step's
// column, or nil if the step carries no timestamp.
func (s *ApplicationStatus) StepTimestamp(step pipeline.Step) **time.Time {
	col, ok := pipeline.TimestampColumn(step)
	if !ok {
		return nil
	}
	switch col {
	case "contract_sent_at":
		return &s.ContractSentAt
	case "documents_uploaded_at":
		return &s.DocumentsUploadedAt
	case "contract_signed_at":
		return &s.ContractSignedAt
	case "contract_submitted_at":
		return &s.ContractSubmittedAt
	case "application_approved_at":
		return &s.ApplicationApprovedAt
	case "invoice_sent_at":
		return &s.InvoiceSentAt
	case "invoice_paid_at":
		return &s.InvoicePaidAt
	case "gateway_integrated_at":
		return &s.GatewayIntegratedAt
	case "account_live_at":
		return &s.AccountLiveAt
	}
	return nil
}

// MarkStepEntered sets the step's timestamp to t if it has one and it is not
// already set. Returns true if the timestamp was written.
func (s *ApplicationStatus) MarkStepEntered(step pipeline.Step, t time.Time) bool {
	slot := s.StepTimestamp(step)
	if slot == nil || *slot != nil {
		return false
	}
	ts := t
	*slot = &ts
	return true
}

// StepHistoryEntry is one committed transition. Entries are append-only and
// physical insertion order is the commit order.
type StepHistoryEntry struct {
	ID            int64         `json:"id"`
	ApplicationID int64         `json:"application_id"`
	FromStep      pipeline.Step `json:"from_step"`
	ToStep        pipeline.Step `json:"to_step"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
