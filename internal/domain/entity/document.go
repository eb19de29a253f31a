package entity

import (
	"fmt"
	"time"
)

// AdditionalCategoryPrefix prefixes the synthetic category assigned to each
// ad-hoc additional-document requirement.
const AdditionalCategoryPrefix = "additional_requested_"

// ApplicationDocument is a stored file tied to a category, or an amendment of
// another document via ParentDocumentID.
type ApplicationDocument struct {
	ID               int64     `json:"id"`
	ApplicationID    int64     `json:"application_id"`
	Category         string    `json:"category"`
	FilePath         string    `json:"file_path"`
	OriginalName     string    `json:"original_name"`
	ParentDocumentID *int64    `json:"parent_document_id,omitempty"`
	UploadedBy       string    `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// ApplicationAdditionalDocument is an ad-hoc extra evidence requirement
// created by staff outside the fixed base category list.
type ApplicationAdditionalDocument struct {
	ID            int64      `json:"id"`
	ApplicationID int64      `json:"application_id"`
	Name          string     `json:"name"`
	Instructions  string     `json:"instructions,omitempty"`
	IsUploaded    bool       `json:"is_uploaded"`
	UploadedAt    *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Category returns the synthetic document category under which uploads for
// this requirement are filed.
func (d *ApplicationAdditionalDocument) Category() string {
	return fmt.Sprintf("%s%d", AdditionalCategoryPrefix, d.ID)
}
