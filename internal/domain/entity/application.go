package entity

import "time"

// Application represents a merchant onboarding case being tracked through
// the pipeline. Fee and gateway credential fields are opaque to the status
// machine; it only ever reads the identity and ownership columns.
type Application struct {
	ID                  int64      `json:"id"`
	AccountID           int64      `json:"account_id"`
	CreatedByUserID     int64      `json:"created_by_user_id"`
	MerchantName        string     `json:"merchant_name"`
	ContactEmail        string     `json:"contact_email"`
	SetupFeeCents       int64      `json:"setup_fee_cents"`
	TransactionFeeBps   int        `json:"transaction_fee_bps"`
	MonthlyFeeCents     int64      `json:"monthly_fee_cents"`
	ScalingFeeBps       int        `json:"scaling_fee_bps"`
	ParentApplicationID *int64     `json:"parent_application_id,omitempty"`
	GatewayCredentials  string     `json:"gateway_credentials,omitempty"`
	WordpressCredentials string    `json:"wordpress_credentials,omitempty"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsFeeRevision returns true if this application revises the fee schedule of
// an earlier application.
func (a *Application) IsFeeRevision() bool {
	return a.ParentApplicationID != nil
}

// IsDeleted returns true if the application has been soft-deleted.
func (a *Application) IsDeleted() bool {
	return a.DeletedAt != nil
}
