package entity

import "time"

// ActivityEntry is one immutable audit record. Rows are created once per
// status transition (and other audited actions) and never updated or deleted.
type ActivityEntry struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	Action        string    `json:"action"`
	Description   string    `json:"description"`
	Metadata      string    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Audit action names recorded by the status machine and services.
const (
	ActionStatusTransition      = "status.transition"
	ActionApplicationCreated    = "application.created"
	ActionApplicationDeleted    = "application.deleted"
	ActionFeesConfirmed         = "fees.confirmed"
	ActionAdditionalInfoSet     = "additional_info.set"
	ActionAdditionalInfoCleared = "additional_info.cleared"
	ActionDocumentUploaded      = "document.uploaded"
	ActionDocumentDeleted       = "document.deleted"
	ActionAdditionalDocAdded    = "additional_document.added"
	ActionAdditionalDocRemoved  = "additional_document.removed"
	ActionContractSent          = "contract.sent"
	ActionContractResent        = "contract.resent"
)
