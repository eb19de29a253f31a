package event

// Type identifies the type of domain event
type Type string

const (
	TypeStatusChanged      Type = "application.status_changed"
	TypeDocumentsComplete  Type = "application.documents_complete"
	TypeApproved           Type = "application.approved"
	TypeAdditionalInfo     Type = "application.additional_info"
	TypeContractSigned     Type = "contract.signed"
	TypeFeesConfirmed      Type = "application.fees_confirmed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeStatusChanged,
		TypeDocumentsComplete,
		TypeApproved,
		TypeAdditionalInfo,
		TypeContractSigned,
		TypeFeesConfirmed:
		return true
	default:
		return false
	}
}
