package entity

import "time"

// Notification statuses.
const (
	NotificationPending = "PENDING"
	NotificationSent    = "SENT"
	NotificationFailed  = "FAILED"
)

// Notification kinds.
const (
	NotificationApprovalEmail     = "approval_email"
	NotificationDocumentsComplete = "documents_complete"
	NotificationAdditionalInfo    = "additional_info"
)

// RecipientKind tags who a notification addresses. The original system
// resolved this with a runtime type+id pair; here it is an explicit tag.
type RecipientKind string

const (
	RecipientAccount     RecipientKind = "account"
	RecipientApplication RecipientKind = "application"
)

// Notification is a queued outbound message. Delivery is owned by the email
// worker; the status machine only ever enqueues.
type Notification struct {
	ID            int64         `json:"id"`
	ApplicationID int64         `json:"application_id"`
	Kind          string        `json:"kind"`
	RecipientKind RecipientKind `json:"recipient_kind"`
	Recipient     string        `json:"recipient"`
	Subject       string        `json:"subject"`
	Body          string        `json:"body"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	SentAt        *time.Time    `json:"sent_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
