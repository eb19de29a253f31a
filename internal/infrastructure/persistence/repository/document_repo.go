package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/sqlite"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `
	id, application_id, category, file_path, original_name,
	parent_document_id, uploaded_by, created_at
`

// Create inserts a document record
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.ApplicationDocument) error {
	query := `
		INSERT INTO application_documents (
			application_id, category, file_path, original_name,
			parent_document_id, uploaded_by
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		doc.ApplicationID,
		doc.Category,
		doc.FilePath,
		doc.OriginalName,
		doc.ParentDocumentID,
		doc.UploadedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.Int64("application_id", doc.ApplicationID),
			zap.String("category", doc.Category),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	doc.ID = id
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.ApplicationDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM application_documents WHERE id = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByApplication returns all documents for an application
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM application_documents
		WHERE application_id = ?
		ORDER BY id ASC`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.ApplicationDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ExistsForCategory reports whether at least one document is stored
// under the given category
func (r *DocumentRepository) ExistsForCategory(ctx context.Context, applicationID int64, category string) (bool, error) {
	query := `SELECT COUNT(1) FROM application_documents WHERE application_id = ? AND category = ?`

	var count int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, applicationID, category).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check document category: %w", err)
	}
	return count > 0, nil
}

// Delete removes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM application_documents WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteByCategory removes all documents in a category for an application
func (r *DocumentRepository) DeleteByCategory(ctx context.Context, applicationID int64, category string) error {
	query := `DELETE FROM application_documents WHERE application_id = ? AND category = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, applicationID, category)
	if err != nil {
		return fmt.Errorf("failed to delete documents by category: %w", err)
	}
	return nil
}

func scanDocument(s scanner) (*entity.ApplicationDocument, error) {
	var doc entity.ApplicationDocument
	var parentID sql.NullInt64
	var uploadedBy sql.NullString

	err := s.Scan(
		&doc.ID,
		&doc.ApplicationID,
		&doc.Category,
		&doc.FilePath,
		&doc.OriginalName,
		&parentID,
		&uploadedBy,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		v := parentID.Int64
		doc.ParentDocumentID = &v
	}
	doc.UploadedBy = uploadedBy.String
	return &doc, nil
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
